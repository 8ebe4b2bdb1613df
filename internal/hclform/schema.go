package hclform

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Forms  []*formBlock `hcl:"form,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type formBlock struct {
	Name   string        `hcl:"name,label"`
	Fields []*fieldBlock `hcl:"field,block"`
}

type fieldBlock struct {
	Key     string       `hcl:"key,label"`
	Label   string       `hcl:"label,optional"`
	Type    string       `hcl:"type,optional"`
	Formula string       `hcl:"formula,optional"`
	Format  *formatBlock `hcl:"format,block"`
}

type formatBlock struct {
	Type      string         `hcl:"type,optional"`
	Precision hcl.Expression `hcl:"precision,optional"`
	Currency  string         `hcl:"currency,optional"`
}
