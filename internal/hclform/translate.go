// This file contains the logic for translating HCL schema structs into the
// form model.

package hclform

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/calcfield/internal/ctxlog"
	"github.com/specialistvlad/calcfield/internal/form"
	"github.com/specialistvlad/calcfield/internal/format"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateForm converts the HCL-specific form schema into the form model.
func translateForm(ctx context.Context, b *formBlock) (*form.Form, error) {
	f := &form.Form{Name: b.Name, Fields: make([]form.Field, 0, len(b.Fields))}
	for _, fb := range b.Fields {
		field, err := translateField(ctx, fb)
		if err != nil {
			return nil, err
		}
		f.Fields = append(f.Fields, field)
	}
	f.Normalize()
	return f, nil
}

func translateField(ctx context.Context, b *fieldBlock) (form.Field, error) {
	logger := ctxlog.FromContext(ctx).With("field", b.Key)
	logger.Debug("Translating HCL field to form model.")

	field := form.Field{
		Key:     b.Key,
		Label:   b.Label,
		Type:    form.ResolveType(b.Type, b.Formula),
		Formula: b.Formula,
	}
	if b.Format == nil {
		return field, nil
	}

	var precision *int
	if isExprDefined(ctx, b.Format.Precision, "precision") {
		p, err := decodeInt(b.Format.Precision)
		if err != nil {
			return form.Field{}, fmt.Errorf("field %q: invalid precision: %w", b.Key, err)
		}
		precision = &p
	}
	spec := format.FromParts(b.Format.Type, precision, b.Format.Currency)
	field.Formatting = &spec
	return field, nil
}

// decodeInt evaluates a constant expression into an int.
func decodeInt(expr hcl.Expression) (int, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() || !val.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected a number, got %s", val.Type().FriendlyName())
	}
	var out int
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return 0, err
	}
	return out, nil
}

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional hcl.Expression fields with
// a zero-width expression, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}

	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}
