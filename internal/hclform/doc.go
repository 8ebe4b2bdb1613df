// Package hclform loads form definitions and submitted values written in
// HCL.
//
// A form file declares one form block with a field block per field:
//
//	form "loan" {
//	  field "loanamount" {
//	    label = "Loan Amount"
//	    type  = "number"
//	  }
//	  field "monthly" {
//	    label   = "Monthly"
//	    type    = "calculation"
//	    formula = "{loanamount} * {rate} / 100"
//	    format {
//	      type      = "currency"
//	      precision = 2
//	      currency  = "USD"
//	    }
//	  }
//	}
//
// A values file is a flat list of attributes, one per field key.
package hclform
