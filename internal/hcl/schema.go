package hcl

import "github.com/hashicorp/hcl/v2"

// rootSchema lists the top-level blocks of a definition file. Settings are
// read with hclutil.FindUniqueBlock, so they are not decoded with gohcl.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "model", LabelNames: []string{"name"}},
		{Type: "settings"},
	},
}

// settingsBlock represents the `settings` block.
type settingsBlock struct {
	MaxDepth *int `hcl:"max_depth,optional"`
}

// modelBody represents the content of a `model` block. The label is taken
// from the block header.
type modelBody struct {
	Globals hcl.Expression `hcl:"globals,optional"`
	Spaces  []*spaceBlock  `hcl:"space,block"`
}

// spaceBlock represents a `space` block. Spaces nest.
type spaceBlock struct {
	Name     string         `hcl:"name,label"`
	Refs     hcl.Expression `hcl:"refs,optional"`
	Cells    []*cellsBlock  `hcl:"cells,block"`
	Spaces   []*spaceBlock  `hcl:"space,block"`
	DefRange hcl.Range      `hcl:",def_range"`
}

// cellsBlock represents a `cells` block.
type cellsBlock struct {
	Name     string         `hcl:"name,label"`
	Params   []string       `hcl:"params,optional"`
	Defaults hcl.Expression `hcl:"defaults,optional"`
	Formula  hcl.Expression `hcl:"formula,optional"`
	Inputs   []*inputBlock  `hcl:"input,block"`
	DefRange hcl.Range      `hcl:",def_range"`
}

// inputBlock represents an `input` block inside `cells`: one value set
// explicitly for an argument tuple.
type inputBlock struct {
	Args  hcl.Expression `hcl:"args,optional"`
	Value hcl.Expression `hcl:"value"`
}
