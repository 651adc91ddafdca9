package render

// Theme holds colors for flow graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by traced category.
	EdgeJump      string // computed jumps
	EdgeCall      string // computed calls
	EdgeRet       string // returns
	EdgeCollision string // call site also recorded as a jump site

	// Node accents.
	JumpTargetFill string // destinations of jumps
	SourceText     string // sources that are never a destination

	// Cluster styling.
	ClusterBorder string // per-segment subgraph border
	ClusterLabel  string // per-segment subgraph label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeJump:      "#0B3D91", // NASA blue
	EdgeCall:      "#424242", // dark gray
	EdgeRet:       "#00695C", // teal
	EdgeCollision: "#FC3D21", // NASA red

	JumpTargetFill: "#ECEFF1", // blue-gray 50
	SourceText:     "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
