package pdxparser

import (
	"strings"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
	"github.com/pdxpatch/mergecore/pkgs/pdxlexer"
)

// parseInlineChildren tokenizes the content of an inline block — e.g. the
// `a = 1 b c = { x y }` in `name = { a = 1 b c = { x y } }` — by whitespace
// with brace-depth tracking (spec §4.1 "Inline sub-parser"). It recognizes
// `ident = ident`, `ident = { ... }`, and bare `ident` forms. Inline
// children carry no RawLine/Span: an unmodified inline Block round-trips
// via its parent's own single-line RawLine/Span, so per-child positions are
// never consulted by the serializer unless the block is later modified, at
// which point it is re-emitted canonically from these children.
func parseInlineChildren(s string) []*pdxast.Node {
	var children []*pdxast.Node
	remaining := s
	for {
		remaining = strings.TrimLeft(remaining, " \t\n\r")
		if remaining == "" {
			break
		}
		if remaining[0] == '#' {
			children = append(children, &pdxast.Node{
				Kind:            pdxast.Comment,
				TrailingComment: remaining[1:],
			})
			break
		}

		ident, rest, ok := pdxlexer.MatchIdentifier(remaining)
		if !ok {
			// Unrecognized token: drop one byte and keep scanning rather than
			// looping forever on content we can't classify.
			remaining = remaining[1:]
			continue
		}

		restTrimmed := strings.TrimLeft(rest, " \t\n\r")
		op, afterOp, hasOp := matchOperatorAt(restTrimmed)
		if !hasOp {
			children = append(children, &pdxast.Node{Kind: pdxast.ListItem, Name: ident})
			remaining = rest
			continue
		}
		afterOp = strings.TrimLeft(afterOp, " \t\n\r")

		if strings.HasPrefix(afterOp, "{") {
			inner, after, closed := scanBalanced(afterOp)
			if !closed {
				// Unterminated nested block within inline content: stop
				// rather than mis-parse the remainder.
				children = append(children, &pdxast.Node{Kind: pdxast.Property, Name: ident, Operator: op, Value: afterOp})
				break
			}
			grandchildren := parseInlineChildren(inner)
			children = append(children, &pdxast.Node{
				Kind:     pdxast.Block,
				Name:     ident,
				Operator: op,
				Inline:   true,
				Children: grandchildren,
			})
			remaining = after
			continue
		}

		value, after := scanInlineValue(afterOp)
		children = append(children, &pdxast.Node{Kind: pdxast.Property, Name: ident, Operator: op, Value: value})
		remaining = after
	}
	return children
}

func matchOperatorAt(s string) (op, rest string, ok bool) {
	for _, candidate := range []string{"<=", ">=", "?=", "=", "<", ">"} {
		if strings.HasPrefix(s, candidate) {
			return candidate, s[len(candidate):], true
		}
	}
	return "", s, false
}

// scanInlineValue reads a value token up to the next unescaped whitespace,
// '}', or '#' — or, if it begins with a quote, the full quoted literal.
func scanInlineValue(s string) (value, rest string) {
	if lit, r, ok := pdxlexer.ScanQuoted(s); ok {
		return lit, r
	}
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '}' || c == '#' {
			break
		}
		i++
	}
	return s[:i], s[i:]
}
