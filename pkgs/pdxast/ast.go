// Package pdxast defines the position-preserving parse tree produced by
// pkgs/pdxparser and consumed by pkgs/merger and pkgs/pdxserializer.
package pdxast

import "fmt"

// NodeKind tags the shape of a Node.
type NodeKind int

const (
	// Root is the synthetic top-level node; only Root and Block carry children.
	Root NodeKind = iota
	Block
	Property
	ListItem
	Comment
	EmptyLine
)

var nodeKindNames = [...]string{
	Root:      "Root",
	Block:     "Block",
	Property:  "Property",
	ListItem:  "ListItem",
	Comment:   "Comment",
	EmptyLine: "EmptyLine",
}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Position is a 1-based line/column, 0-based byte offset into the source text.
// pdxparser fills in only Offset; Line and Column are left zero.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span covers a node's full source range, used for diagnostics and for the
// merger's find-first-occurrence text splicing.
type Span struct {
	Start Position
	End   Position
}

// Node is one entry in the parse tree. See spec §3 for the full field
// contract; every field below corresponds to one named there.
type Node struct {
	Kind NodeKind

	// Name is the identifier for Block/Property nodes. For a ListItem it
	// holds the item itself (Value stays empty); empty for Comment and
	// EmptyLine.
	Name string

	// Value is the scalar payload as raw text (including surrounding quotes,
	// if any) for Property nodes.
	Value string

	// Operator is the original assignment token (=, <, >, <=, >=, ?=) as it
	// appeared in the source. Structurally all operators are equivalent;
	// Operator is retained only so RawLine round-trips and so the
	// serializer can emit it unchanged for untouched nodes.
	Operator string

	// Children holds, in source order, the contents of a Block or Root.
	Children []*Node

	// TrailingComment is the `#...` fragment sharing a line with this node,
	// without the leading `#`.
	TrailingComment string

	// IsCommented means the whole block was found prefixed with `#` in the
	// source (an "uncomment to enable" block). Only meaningful on Block.
	IsCommented bool

	// RawLine is the original line text (sans trailing newline) this node
	// was parsed from. For a multi-line Block, RawLine is just the opening
	// line; the matching closer is tracked via CloserRawLine.
	RawLine string

	// CloserRawLine is the original text of the line holding this Block's
	// matching closing brace, when the block is not inline.
	CloserRawLine string

	// Indent is the leading-whitespace string of the opening line.
	Indent string

	// Inline is true when a Block's opener and closer occur on one line in
	// the source (`name = { a = 1 }`).
	Inline bool

	// Modified is set by the merger on each top-level block it changed;
	// the serializer re-emits canonical form for modified nodes and the
	// verbatim source slice covered by Span for everything else.
	Modified bool

	Span Span
}

// Tree is a parsed file: a Root node plus any parse-time diagnostics.
type Tree struct {
	Root *Node

	// SourceText is the BOM-stripped, newline-normalized text the tree was
	// parsed from. Every Node's Span is a byte range into this string, used
	// by the serializer to round-trip unmodified subtrees verbatim.
	SourceText string

	// UnbalancedBraces is set when the final depth-stack height at EOF was
	// not 1, i.e. some block was never closed. A surplus closer at top
	// level cannot pop the root frame, so it does not set this flag.
	UnbalancedBraces bool

	// OpenCount / CloseCount are brace tallies from a separate counting
	// pass; UnbalancedBraces is not derived from them. The validator quotes
	// them in its brace-balance error.
	OpenCount  int
	CloseCount int

	// HadBOM records whether the source began with a UTF-8 BOM. The
	// serializer does not read it: its output always starts with a BOM.
	HadBOM bool
}

// NewRoot constructs an empty Root node.
func NewRoot() *Node {
	return &Node{Kind: Root}
}

// IsContainer reports whether a node kind may carry Children.
func (k NodeKind) IsContainer() bool {
	return k == Root || k == Block
}

// NamedChildIndices returns, in order, the indices within n.Children whose
// Name equals name, for matching repeated same-named children positionally
// (spec §9: "if = {…} if = {…}" matches by 0/1/2), since children are
// stored as an ordered slice rather than a keyed map. The merger does its
// own block-only lookup (blockChildIndices) and does not call this.
func (n *Node) NamedChildIndices(name string) []int {
	var idx []int
	for i, c := range n.Children {
		if c.Name == name && (c.Kind == Block || c.Kind == Property || c.Kind == ListItem) {
			idx = append(idx, i)
		}
	}
	return idx
}

// ListItems returns the ordered list-item values of a container's direct
// children (used for AccumulateList merging of e.g. `on_actions = { a b c }`).
func (n *Node) ListItems() []string {
	var items []string
	for _, c := range n.Children {
		if c.Kind == ListItem {
			items = append(items, c.Name)
		}
	}
	return items
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}
