// Package pdxserializer renders a pdxast.Tree back to Paradox script text
// (spec §4.2). Unmodified subtrees round-trip byte-for-byte from the
// original source via their Span; modified nodes are re-emitted in
// canonical form.
package pdxserializer

import (
	"fmt"
	"strings"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
)

const outputBOM = "\xEF\xBB\xBF"

// Serialize renders tree back to text: UTF-8 with a leading BOM, tabs for
// indentation, LF newlines, and exactly one trailing newline (spec §6).
func Serialize(tree *pdxast.Tree) string {
	var sb strings.Builder
	for _, child := range tree.Root.Children {
		serializeNode(&sb, tree.SourceText, child, 0)
	}
	out := strings.TrimRight(sb.String(), "\n") + "\n"
	return outputBOM + out
}

func serializeNode(sb *strings.Builder, source string, n *pdxast.Node, depth int) {
	if !n.Modified {
		if n.Span.End.Offset > n.Span.Start.Offset || n.Kind == pdxast.EmptyLine {
			sb.WriteString(source[n.Span.Start.Offset:n.Span.End.Offset])
		}
		sb.WriteString("\n")
		return
	}

	indent := strings.Repeat("\t", depth)
	switch n.Kind {
	case pdxast.EmptyLine:
		sb.WriteString("\n")
	case pdxast.Comment:
		sb.WriteString(indent)
		sb.WriteString("#")
		sb.WriteString(n.TrailingComment)
		sb.WriteString("\n")
	case pdxast.ListItem:
		sb.WriteString(indent)
		sb.WriteString(commentedPrefix(n))
		sb.WriteString(n.Name)
		writeTrailingComment(sb, n)
		sb.WriteString("\n")
	case pdxast.Property:
		op := n.Operator
		if op == "" {
			op = "="
		}
		sb.WriteString(indent)
		sb.WriteString(commentedPrefix(n))
		sb.WriteString(fmt.Sprintf("%s %s %s", n.Name, op, n.Value))
		writeTrailingComment(sb, n)
		sb.WriteString("\n")
	case pdxast.Block:
		serializeBlock(sb, source, n, depth)
	}
}

func serializeBlock(sb *strings.Builder, source string, n *pdxast.Node, depth int) {
	op := n.Operator
	if op == "" {
		op = "="
	}
	indent := strings.Repeat("\t", depth)
	prefix := commentedPrefix(n)

	if n.Inline {
		sb.WriteString(indent)
		sb.WriteString(prefix)
		sb.WriteString(fmt.Sprintf("%s %s { %s }", n.Name, op, serializeInlineChildren(n.Children)))
		writeTrailingComment(sb, n)
		sb.WriteString("\n")
		return
	}

	sb.WriteString(indent)
	sb.WriteString(prefix)
	sb.WriteString(fmt.Sprintf("%s %s {\n", n.Name, op))
	for _, c := range n.Children {
		serializeNode(sb, source, c, depth+1)
	}
	sb.WriteString(indent)
	sb.WriteString(prefix)
	sb.WriteString("}\n")
}

// serializeInlineChildren renders an inline block's children as space
// separated tokens, matching the `a = 1 b c = { x y }` form spec §4.1
// describes for the inline sub-parser.
func serializeInlineChildren(children []*pdxast.Node) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		switch c.Kind {
		case pdxast.ListItem:
			parts = append(parts, c.Name)
		case pdxast.Property:
			op := c.Operator
			if op == "" {
				op = "="
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", c.Name, op, c.Value))
		case pdxast.Block:
			op := c.Operator
			if op == "" {
				op = "="
			}
			parts = append(parts, fmt.Sprintf("%s %s { %s }", c.Name, op, serializeInlineChildren(c.Children)))
		case pdxast.Comment:
			parts = append(parts, "#"+c.TrailingComment)
		}
	}
	return strings.Join(parts, " ")
}

func commentedPrefix(n *pdxast.Node) string {
	if n.IsCommented {
		return "#"
	}
	return ""
}

func writeTrailingComment(sb *strings.Builder, n *pdxast.Node) {
	if n.TrailingComment != "" {
		sb.WriteString(" #")
		sb.WriteString(n.TrailingComment)
	}
}
