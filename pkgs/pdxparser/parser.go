// Package pdxparser implements the Paradox script parser: a line-oriented,
// single-pass reader with a depth stack that produces a pdxast.Tree (spec
// §4.1). It never panics and never fails on structural oddities — malformed
// regions degrade into preserved Comment nodes; only invalid UTF-8 input
// returns an error.
package pdxparser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
	"github.com/pdxpatch/mergecore/pkgs/pdxlexer"
)

// lineInfo is one physical line of the normalized source plus its starting
// byte offset, used to populate every Node's Span.
type lineInfo struct {
	Text  string
	Start int
}

func splitLinesWithOffsets(s string) []lineInfo {
	if s == "" {
		return nil
	}
	var out []lineInfo
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, lineInfo{Text: s[start:i], Start: start})
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, lineInfo{Text: s[start:], Start: start})
	}
	return out
}

// frame is one entry of the parser's depth stack: an open Block (or the
// Root) plus whether that container is itself a commented block, so every
// line read while it is on top of the stack inherits IsCommented.
type frame struct {
	node      *pdxast.Node
	commented bool
	lineIdx   int // index of the line that opened this frame, for Span bookkeeping
}

// Parser holds the mutable state of one parse pass. A Parser is used once.
type Parser struct {
	src   string
	lines []lineInfo
	pos   int
	stack []frame
}

// Parse converts source text into a Tree. It tolerates CRLF, a leading BOM,
// and arbitrary malformed structure; the only error path is invalid UTF-8,
// which is treated as an encoding failure per spec §4.1 ("ParseError is
// reserved for I/O and encoding failures").
func Parse(text string) (*pdxast.Tree, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("pdxparser: input is not valid UTF-8")
	}

	normalized, hadBOM := pdxlexer.StripBOM(text)
	normalized = pdxlexer.NormalizeNewlines(normalized)

	root := pdxast.NewRoot()
	p := &Parser{
		src:   normalized,
		lines: splitLinesWithOffsets(normalized),
		stack: []frame{{node: root, commented: false}},
	}

	maxIterations := len(normalized) + pdxlexer.MaxIterationSlack
	iterations := 0
	for p.pos < len(p.lines) {
		iterations++
		if iterations > maxIterations {
			// Pathological input guard (spec §4.1 "Safety"): bail out of the
			// main loop rather than spin forever. Whatever was parsed so far
			// is still returned.
			break
		}
		p.stepLine()
	}

	tree := &pdxast.Tree{Root: root, SourceText: normalized, HadBOM: hadBOM}
	tree.UnbalancedBraces = len(p.stack) != 1
	tree.OpenCount, tree.CloseCount = countAllBraces(normalized)
	return tree, nil
}

// countAllBraces tallies '{'/'}' across the whole source, ignoring braces
// inside quoted strings but counting every brace on a line that sits inside
// a commented block (spec §9's resolved rule: inside a commented block the
// whole line counts). This mirrors stepLine's own frame-commented tracking
// (leading-'}' popping, the comment-form block opener, and the normal
// assignment opener) independently of parse tree construction, so the
// validator (spec §4.5) can reuse a single authoritative counting pass.
func countAllBraces(src string) (opens, closes int) {
	commentedStack := []bool{false}
	for _, ln := range splitLinesWithOffsets(src) {
		_, rest := pdxlexer.SplitIndent(ln.Text)
		frameCommented := commentedStack[len(commentedStack)-1]

		working := rest
		if frameCommented && strings.HasPrefix(working, "#") {
			working = working[1:]
		}
		if strings.TrimSpace(working) == "" {
			continue
		}

		// Tally before the leading-'}' pop loop below consumes characters,
		// so a line that closes a commented block still has its own '}'
		// counted (spec §9: inside a commented block the whole line counts).
		if frameCommented {
			o, c := pdxlexer.CountBraces(working, true)
			opens += o
			closes += c
		} else {
			pre, _, _ := pdxlexer.CommentSplit(working)
			o, c := pdxlexer.CountBraces(pre, false)
			opens += o
			closes += c
		}

		for {
			trimmed := strings.TrimLeft(working, " \t")
			if !strings.HasPrefix(trimmed, "}") {
				working = trimmed
				break
			}
			if len(commentedStack) > 1 {
				commentedStack = commentedStack[:len(commentedStack)-1]
			}
			working = trimmed[1:]
		}
		if working == "" {
			continue
		}

		pre, comment, hasComment := pdxlexer.CommentSplit(working)
		preTrimmed := strings.TrimSpace(pre)

		if preTrimmed == "" && hasComment {
			if _, _, afterOp, ok := matchAssignment(comment); ok && strings.HasPrefix(strings.TrimSpace(afterOp), "{") {
				commentedStack = append(commentedStack, true)
			}
			continue
		}

		if _, _, afterOp, ok := matchAssignment(preTrimmed); ok && strings.HasPrefix(afterOp, "{") {
			if _, after, closed := scanBalanced(afterOp); !(closed && strings.TrimSpace(after) == "") {
				commentedStack = append(commentedStack, frameCommented)
			}
		}
	}
	return opens, closes
}

func (p *Parser) top() *frame {
	return &p.stack[len(p.stack)-1]
}

// stepLine consumes exactly one physical line, advancing p.pos by 1 and
// mutating the frame stack per spec §4.1's algorithm.
func (p *Parser) stepLine() {
	li := p.lines[p.pos]
	raw := li.Text
	p.pos++

	indent, rest := pdxlexer.SplitIndent(raw)
	frameCommented := p.top().commented

	working := rest
	if frameCommented && strings.HasPrefix(working, "#") {
		working = working[1:]
	}

	if strings.TrimSpace(working) == "" {
		p.top().node.Children = append(p.top().node.Children, &pdxast.Node{
			Kind:        pdxast.EmptyLine,
			RawLine:     raw,
			IsCommented: frameCommented,
			Span:        lineSpan(li),
		})
		return
	}

	// Step 4: pop one frame per leading '}', honoring nesting.
	for {
		trimmed := strings.TrimLeft(working, " \t")
		if !strings.HasPrefix(trimmed, "}") {
			working = trimmed
			break
		}
		if len(p.stack) > 1 {
			closed := p.top().node
			closed.Span.End = lineSpan(li).End
			closed.CloserRawLine = raw
			p.stack = p.stack[:len(p.stack)-1]
		}
		working = trimmed[1:]
	}
	if working == "" {
		return
	}

	// Step 3/5: split the comment; an empty pre-comment slice means the
	// line's remaining content begins with '#' — either a plain comment or
	// a commented-block opener.
	pre, comment, hasComment := pdxlexer.CommentSplit(working)
	preTrimmed := strings.TrimSpace(pre)

	if preTrimmed == "" && hasComment {
		if name, op, afterOp, ok := matchAssignment(comment); ok {
			if trimmedAfter := strings.TrimSpace(afterOp); strings.HasPrefix(trimmedAfter, "{") {
				p.openBlock(name, op, indent, raw, li, true)
				return
			}
		}
		p.top().node.Children = append(p.top().node.Children, &pdxast.Node{
			Kind:            pdxast.Comment,
			RawLine:         raw,
			TrailingComment: comment,
			IsCommented:     frameCommented,
			Span:            lineSpan(li),
		})
		return
	}

	trailingComment := ""
	if hasComment {
		trailingComment = comment
	}

	if name, op, afterOp, ok := matchAssignment(preTrimmed); ok {
		if strings.HasPrefix(afterOp, "{") {
			if inner, after, closed := scanBalanced(afterOp); closed && strings.TrimSpace(after) == "" {
				children := parseInlineChildren(inner)
				node := &pdxast.Node{
					Kind:            pdxast.Block,
					Name:            name,
					Operator:        op,
					Children:        children,
					Inline:          true,
					RawLine:         raw,
					Indent:          indent,
					TrailingComment: trailingComment,
					IsCommented:     frameCommented,
					Span:            lineSpan(li),
				}
				p.top().node.Children = append(p.top().node.Children, node)
				return
			}
			p.openBlock(name, op, indent, raw, li, frameCommented)
			return
		}
		value := strings.TrimSpace(afterOp)
		p.top().node.Children = append(p.top().node.Children, &pdxast.Node{
			Kind:            pdxast.Property,
			Name:            name,
			Value:           value,
			Operator:        op,
			RawLine:         raw,
			Indent:          indent,
			TrailingComment: trailingComment,
			IsCommented:     frameCommented,
			Span:            lineSpan(li),
		})
		return
	}

	if ident, after, ok := pdxlexer.MatchIdentifier(preTrimmed); ok && strings.TrimSpace(after) == "" {
		p.top().node.Children = append(p.top().node.Children, &pdxast.Node{
			Kind:            pdxast.ListItem,
			Name:            ident,
			RawLine:         raw,
			Indent:          indent,
			TrailingComment: trailingComment,
			IsCommented:     frameCommented,
			Span:            lineSpan(li),
		})
		return
	}

	// Step 9: unrecognized content — preserved verbatim as a Comment node so
	// the serializer can still round-trip it.
	p.top().node.Children = append(p.top().node.Children, &pdxast.Node{
		Kind:        pdxast.Comment,
		RawLine:     raw,
		IsCommented: frameCommented,
		Span:        lineSpan(li),
	})
}

// openBlock pushes a new multi-line Block frame, appending it to the
// current top-of-stack's children immediately so the block keeps its
// source-order position even before it is closed.
func (p *Parser) openBlock(name, op, indent, raw string, li lineInfo, commented bool) {
	node := &pdxast.Node{
		Kind:        pdxast.Block,
		Name:        name,
		Operator:    op,
		Indent:      indent,
		RawLine:     raw,
		IsCommented: commented,
		Span:        lineSpan(li),
	}
	p.top().node.Children = append(p.top().node.Children, node)
	p.stack = append(p.stack, frame{node: node, commented: commented, lineIdx: p.pos - 1})
}

func lineSpan(li lineInfo) pdxast.Span {
	start := pdxast.Position{Offset: li.Start}
	end := pdxast.Position{Offset: li.Start + len(li.Text)}
	return pdxast.Span{Start: start, End: end}
}

// matchAssignment recognizes `name <op> rest` where op is one of the
// operators spec §3 unifies into a single assignment token.
func matchAssignment(s string) (name, op, rest string, ok bool) {
	ident, after, identOK := pdxlexer.MatchIdentifier(s)
	if !identOK {
		return "", "", s, false
	}
	after = strings.TrimLeft(after, " \t")
	for _, candidate := range []string{"<=", ">=", "?=", "=", "<", ">"} {
		if strings.HasPrefix(after, candidate) {
			remainder := strings.TrimLeft(after[len(candidate):], " \t")
			return ident, candidate, remainder, true
		}
	}
	return "", "", s, false
}

// scanBalanced requires s to begin with '{' and returns the content strictly
// between it and its matching '}' (honoring nested braces and quoted
// strings), plus whatever follows the closing brace. closed is false if no
// matching '}' is found within s, meaning the block does not close on this
// line.
func scanBalanced(s string) (inner, after string, closed bool) {
	if len(s) == 0 || s[0] != '{' {
		return "", s, false
	}
	depth := 0
	inQuote := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], true
			}
		}
	}
	return "", s, false
}
