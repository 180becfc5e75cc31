// Package merger implements the structural three-way merge (spec §4.4):
// a base file plus N modded versions, given in ascending priority, are
// combined by walking top-level blocks and recursing into containers per
// the rulebook's classification. Each block's rewrite is computed by
// find-first-occurrence substitution over the base's own text, grounded on
// the teacher source's text-splicing approach (structural_merger.py's
// `result_content.replace(old, new, 1)`); the result is then reparsed and
// handed to pdxserializer, with every top-level name the merge actually
// touched marked Modified so it re-emits in canonical form while every
// untouched block round-trips verbatim through its own Span (spec §4.2).
package merger

import (
	"fmt"
	"strings"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
	"github.com/pdxpatch/mergecore/pkgs/pdxerrors"
	"github.com/pdxpatch/mergecore/pkgs/pdxlexer"
	"github.com/pdxpatch/mergecore/pkgs/pdxparser"
	"github.com/pdxpatch/mergecore/pkgs/pdxserializer"
	"github.com/pdxpatch/mergecore/pkgs/rulebook"
)

// ModInput is one submod's raw content, in ascending priority order
// (later entries win ties).
type ModInput struct {
	Name string
	Text string
}

// Change records one bookkeeping entry produced during a merge, mirroring
// the teacher source's MergeChange records (spec §4.4/§7).
type Change struct {
	Path       string
	ChangeType string
	ModName    string
	Detail     string
}

// Result carries the merge's bookkeeping (spec §4.4: "AddedUniqueBlocks,
// ReplacedAtomic, SkippedUnsafe"). The orchestrator does not read it; its
// statistics record counts files, not these entries.
type Result struct {
	AddedUniqueBlocks []string
	ReplacedAtomic    []string
	SkippedUnsafe     []string
	Changes           []Change
}

func (r *Result) record(c Change) {
	r.Changes = append(r.Changes, c)
	switch c.ChangeType {
	case "added_unique_block":
		r.AddedUniqueBlocks = append(r.AddedUniqueBlocks, c.Path)
	case "replaced_atomic", "replaced_fallback", "replaced_whole":
		r.ReplacedAtomic = append(r.ReplacedAtomic, c.Path)
	case "skipped_unsafe":
		r.SkippedUnsafe = append(r.SkippedUnsafe, c.Path)
	}
}

// modChange is one mod's contribution to a block, carried alongside the
// source text of the tree it was parsed from (each mod is its own parse,
// so a node's Span is only meaningful against its own originating text).
type modChange struct {
	modName string
	node    *pdxast.Node
	source  string
}

func (mc modChange) raw() string {
	return sourceSpan(mc.source, mc.node)
}

// Merge combines base against mods (ascending priority) for a file at
// filePath, returning the merged text and a Result. Content-shape
// problems never produce an error — they degrade the merge per spec §4.4's
// state machine; the only error paths are a parse failure on an input
// (invalid UTF-8) or a post-merge brace imbalance (spec §7).
func Merge(base string, mods []ModInput, filePath string) (string, *Result, error) {
	baseTree, err := pdxparser.Parse(base)
	if err != nil {
		return "", nil, pdxerrors.Wrap(pdxerrors.KindParse, "parsing base failed", err).WithContext("path", filePath)
	}

	result := &Result{}

	// Batch semantics (spec §9 design note, resolved against the teacher's
	// merge_contents): every mod's per-block-name contribution is computed
	// by comparing against the ORIGINAL base tree, never an intermediate,
	// already-mutated state. A later mod shipping base-identical content
	// for a block an earlier mod already changed must not undo that change.
	allChanges := make(map[string][]modChange)
	var order []string // first-seen order of block names across mods

	for _, mod := range mods {
		modTree, err := pdxparser.Parse(mod.Text)
		if err != nil {
			return "", nil, pdxerrors.Wrap(pdxerrors.KindParse, "parsing mod "+mod.Name+" failed", err).WithContext("path", filePath)
		}
		for _, modBlock := range modTree.Root.Children {
			if modBlock.Kind != pdxast.Block || modBlock.Name == "" {
				continue
			}
			mc := modChange{modName: mod.Name, node: modBlock, source: modTree.SourceText}

			baseBlock := findTopLevel(baseTree.Root, modBlock.Name)
			if baseBlock == nil {
				addChange(allChanges, &order, modBlock.Name, mc)
				continue
			}
			if normalize(innerText(baseTree.SourceText, baseBlock)) == normalize(innerText(modTree.SourceText, modBlock)) {
				continue
			}
			addChange(allChanges, &order, modBlock.Name, mc)
		}
	}

	// Seed from the tree's own (CRLF-normalized) source, not the caller's
	// raw base: every splice target below is sliced from baseTree.SourceText,
	// and searching a normalized needle in a CRLF-encoded haystack would
	// silently find nothing (replaceFirst is a no-op when the needle isn't
	// found), dropping every mod change on a CRLF-shipped base file.
	resultText := baseTree.SourceText

	for _, name := range order {
		changes := allChanges[name]
		baseBlock := findTopLevel(baseTree.Root, name)

		if baseBlock == nil {
			last := changes[len(changes)-1]
			resultText = strings.TrimRight(resultText, "\n") + "\n\n" + last.raw()
			result.record(Change{Path: name, ChangeType: "added_unique_block", ModName: last.modName, Detail: name})
			continue
		}

		strategy := rulebook.TopLevelStrategy(name, filePath)
		baseRaw := sourceSpan(baseTree.SourceText, baseBlock)

		if strategy == rulebook.MergeableContainer {
			mergedText := mergeBlock(baseTree.SourceText, baseBlock, changes, result)
			resultText = replaceFirst(resultText, baseRaw, mergedText)
			continue
		}

		// AtomicAccumulate: highest-priority differing mod wins outright,
		// inner structure is never blended.
		last := changes[len(changes)-1]
		resultText = replaceFirst(resultText, baseRaw, last.raw())
		result.record(Change{Path: name, ChangeType: "replaced_atomic", ModName: last.modName, Detail: name})
	}

	mergedTree, err := pdxparser.Parse(resultText)
	if err != nil {
		return "", nil, pdxerrors.Wrap(pdxerrors.KindParse, "parsing merged result failed", err).WithContext("path", filePath)
	}
	if mergedTree.UnbalancedBraces {
		return "", nil, pdxerrors.NewUnbalancedBracesError(filePath, mergedTree.OpenCount, mergedTree.CloseCount)
	}

	markModifiedTopLevel(mergedTree.Root, order)
	return pdxserializer.Serialize(mergedTree), result, nil
}

// markModifiedTopLevel flags every top-level block the merge actually
// touched (recursively merged, atomically replaced, or newly added) so
// pdxserializer re-emits it in canonical form; every other top-level block
// is left untouched and round-trips byte-for-byte via its own Span into
// mergedTree.SourceText.
func markModifiedTopLevel(root *pdxast.Node, touched []string) {
	set := make(map[string]bool, len(touched))
	for _, name := range touched {
		set[name] = true
	}
	for _, c := range root.Children {
		if c.Kind == pdxast.Block && set[c.Name] {
			c.Modified = true
		}
	}
}

func addChange(all map[string][]modChange, order *[]string, name string, mc modChange) {
	if _, ok := all[name]; !ok {
		*order = append(*order, name)
	}
	all[name] = append(all[name], mc)
}

func findTopLevel(root *pdxast.Node, name string) *pdxast.Node {
	for _, c := range root.Children {
		if c.Kind == pdxast.Block && c.Name == name {
			return c
		}
	}
	return nil
}

// mergeBlock deep-merges a single container block, grounded on
// structural_merger.py's _deep_merge_block. It returns the merged block's
// own full replacement text (including its opening line's indentation),
// for the caller to splice via find-first-occurrence substitution.
func mergeBlock(baseSource string, base *pdxast.Node, mods []modChange, result *Result) string {
	resultText := sourceSpan(baseSource, base)

	// The teacher re-checks the container's own classification as a child
	// (get_merge_strategy(name) with no parent context) before recursing,
	// catching names that child_strategy would mark ReplaceWhole even
	// though they were routed here as a top-level MergeableContainer.
	if rulebook.ChildStrategy(base.Name, "") == rulebook.ReplaceWhole {
		if len(mods) > 0 {
			last := mods[len(mods)-1]
			result.record(Change{Path: base.Name, ChangeType: "replaced_whole", ModName: last.modName, Detail: base.Name})
			return last.raw()
		}
		return resultText
	}

	if rulebook.IsGUIContainer(base.Name) {
		return mergeGUIContainer(baseSource, base, mods, result)
	}

	for _, name := range blockChildNames(base) {
		indices := blockChildIndices(base, name)
		strategy := rulebook.ChildStrategy(name, base.Name)

		for idx, baseChildIdx := range indices {
			baseChild := base.Children[baseChildIdx]

			var childMods []modChange
			for _, mc := range mods {
				modIndices := blockChildIndices(mc.node, name)
				if idx < len(modIndices) {
					childMods = append(childMods, modChange{modName: mc.modName, node: mc.node.Children[modIndices[idx]], source: mc.source})
				}
			}
			if len(childMods) == 0 {
				continue
			}

			switch strategy {
			case rulebook.AccumulateList:
				resultText = applyAccumulateList(resultText, baseSource, base.Name, name, baseChild, childMods, result)
			case rulebook.Recursive:
				mergedChildText := mergeBlock(baseSource, baseChild, childMods, result)
				oldRaw := sourceSpan(baseSource, baseChild)
				resultText = replaceFirst(resultText, oldRaw, mergedChildText)
			default: // ReplaceWhole
				for i := len(childMods) - 1; i >= 0; i-- {
					cm := childMods[i]
					if normalize(innerText(baseSource, baseChild)) != normalize(innerText(cm.source, cm.node)) {
						oldRaw := sourceSpan(baseSource, baseChild)
						resultText = replaceFirst(resultText, oldRaw, cm.raw())
						result.record(Change{Path: base.Name + "." + name, ChangeType: "replaced_block", ModName: cm.modName, Detail: name})
						break
					}
				}
			}
		}
	}

	resultText = appendNewChildren(resultText, base, mods, result)
	return resultText
}

// applyAccumulateList unions base's list items with every mod's version at
// the same positional index, preserving base order and appending novel
// items in first-seen mod order (spec §4.4).
func applyAccumulateList(resultText, baseSource, parentName, childName string, baseChild *pdxast.Node, childMods []modChange, result *Result) string {
	baseItems := baseChild.ListItems()
	if len(baseItems) == 0 {
		return resultText
	}
	allItems := append([]string{}, baseItems...)
	changed := false
	for _, cm := range childMods {
		for _, item := range cm.node.ListItems() {
			if !containsString(allItems, item) {
				allItems = append(allItems, item)
				changed = true
				result.record(Change{Path: fmt.Sprintf("%s.%s[%d]", parentName, childName, 0), ChangeType: "added_list_item", ModName: cm.modName, Detail: item})
			}
		}
	}
	if !changed {
		return resultText
	}
	oldRaw := sourceSpan(baseSource, baseChild)
	newRaw := renderAccumulateList(baseChild, allItems)
	return replaceFirst(resultText, oldRaw, newRaw)
}

// renderAccumulateList rewrites a list-valued block to contain items,
// preserving the base's inline/multi-line form and indentation (spec §4.4:
// "rewrite the list in place, choosing multi-line or single-line form to
// match the base").
func renderAccumulateList(base *pdxast.Node, items []string) string {
	op := base.Operator
	if op == "" {
		op = "="
	}
	if base.Inline {
		inner := " " + strings.Join(items, " ") + " "
		return base.Indent + fmt.Sprintf("%s %s {%s}", base.Name, op, inner)
	}

	itemIndent := base.Indent + "\t"
	for _, c := range base.Children {
		if c.Kind == pdxast.ListItem && c.Indent != "" {
			itemIndent = c.Indent
			break
		}
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = itemIndent + it
	}
	inner := "\n" + strings.Join(lines, "\n") + "\n" + base.Indent
	return base.Indent + fmt.Sprintf("%s %s {%s}", base.Name, op, inner)
}

// appendNewChildren adds entirely new child names, and positions beyond
// the base's own count for existing names, subject to IsSafeToAddChild
// (spec §4.4 "add new children").
func appendNewChildren(resultText string, base *pdxast.Node, mods []modChange, result *Result) string {
	added := map[string]bool{}
	for _, mc := range mods {
		for _, name := range blockChildNames(mc.node) {
			modIndices := blockChildIndices(mc.node, name)
			baseCount := len(blockChildIndices(base, name))

			for idx, mi := range modIndices {
				if idx < baseCount {
					continue
				}
				key := fmt.Sprintf("%s#%d", name, idx)
				if rulebook.IsSafeToAddChild(name, base.Name) {
					if added[key] {
						continue
					}
					modChild := mc.node.Children[mi]
					closeBracePos := strings.LastIndex(resultText, "}")
					if closeBracePos <= 0 {
						continue
					}
					indent := base.Indent + "\t"
					newBlockText := "\n" + indent + strings.TrimSpace(sourceSpan(mc.source, modChild))
					resultText = resultText[:closeBracePos] + newBlockText + "\n" + resultText[closeBracePos:]
					added[key] = true
					result.record(Change{Path: base.Name + "." + name, ChangeType: "added_child_block", ModName: mc.modName, Detail: name})
				} else {
					result.record(Change{Path: base.Name + "." + name, ChangeType: "skipped_unsafe", ModName: mc.modName, Detail: "unsafe child " + name})
				}
			}
		}
	}
	return resultText
}

// mergeGUIContainer implements the GUI-container special case (spec §4.4):
// children are matched by normalized content rather than position, so
// duplicate content from multiple mods collapses and novel content
// accumulates.
func mergeGUIContainer(baseSource string, base *pdxast.Node, mods []modChange, result *Result) string {
	type entry struct {
		source string
		node   *pdxast.Node
	}
	blocks := map[string]entry{}
	var order []string

	for _, idx := range blockChildIndices(base, "") {
		child := base.Children[idx]
		norm := normalize(innerText(baseSource, child))
		if _, ok := blocks[norm]; !ok {
			order = append(order, norm)
		}
		blocks[norm] = entry{source: baseSource, node: child}
	}
	for _, mc := range mods {
		for _, idx := range blockChildIndices(mc.node, "") {
			child := mc.node.Children[idx]
			norm := normalize(innerText(mc.source, child))
			if _, ok := blocks[norm]; !ok {
				order = append(order, norm)
				detail := sourceSpan(mc.source, child)
				if len(detail) > 50 {
					detail = detail[:50]
				}
				result.record(Change{Path: base.Name, ChangeType: "added_gui_block", ModName: mc.modName, Detail: detail})
			}
			blocks[norm] = entry{source: mc.source, node: child}
		}
	}

	indent := base.Indent + "\t"
	texts := make([]string, 0, len(order))
	for _, norm := range order {
		e := blocks[norm]
		texts = append(texts, reindentBlock(sourceSpan(e.source, e.node), indent))
	}

	raw := sourceSpan(baseSource, base)
	braceIdx := strings.Index(raw, "{")
	header := raw
	if braceIdx >= 0 {
		header = raw[:braceIdx+1]
	}
	return header + "\n" + strings.Join(texts, "\n") + "\n" + base.Indent + "}"
}

func reindentBlock(raw, indent string) string {
	trimmed := strings.TrimSpace(raw)
	lines := strings.Split(trimmed, "\n")
	for i, ln := range lines {
		s := strings.TrimSpace(ln)
		if s != "" {
			lines[i] = indent + s
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// blockChildNames returns the distinct names of n's Block-kind children, in
// first-seen order. Only blocks participate in container-level merging;
// simple scalar properties never carry nested structure to merge.
func blockChildNames(n *pdxast.Node) []string {
	var names []string
	seen := map[string]bool{}
	for _, c := range n.Children {
		if c.Kind != pdxast.Block || c.Name == "" {
			continue
		}
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	return names
}

// blockChildIndices returns, in order, the indices of n.Children that are
// Block-kind with the given name. An empty name matches every block child,
// used by mergeGUIContainer where matching is by content, not name.
func blockChildIndices(n *pdxast.Node, name string) []int {
	var idx []int
	for i, c := range n.Children {
		if c.Kind != pdxast.Block {
			continue
		}
		if name == "" || c.Name == name {
			idx = append(idx, i)
		}
	}
	return idx
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// sourceSpan slices a node's full raw text out of the source it was parsed
// from — the Go analogue of the teacher source's ParsedBlock.full_text.
func sourceSpan(source string, n *pdxast.Node) string {
	if n.Span.Start.Offset < 0 || n.Span.End.Offset > len(source) || n.Span.Start.Offset > n.Span.End.Offset {
		return ""
	}
	return source[n.Span.Start.Offset:n.Span.End.Offset]
}

// innerText returns the content strictly between a block's braces, used
// for normalized-equality comparisons (never for output).
func innerText(source string, n *pdxast.Node) string {
	raw := sourceSpan(source, n)
	open := strings.Index(raw, "{")
	if open < 0 {
		return raw
	}
	close := strings.LastIndex(raw, "}")
	if close <= open {
		return ""
	}
	return raw[open+1 : close]
}

// Normalize canonicalizes raw script text for equality comparisons: strips
// comments outside quotes and collapses whitespace. Exported for the
// orchestrator's per-file "is this mod unchanged from base?" filter (spec
// §4.6), which needs the same rule applied to whole-file text rather than
// just a single block's inner text.
func Normalize(text string) string {
	return normalize(text)
}

// normalize strips comments outside quotes and collapses all ASCII
// whitespace into single spaces, joining into one comparison string (spec
// §4.4 "Normalization": used for equality testing only, never for output).
func normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		pre, _, _ := pdxlexer.CommentSplit(line)
		trimmed := strings.TrimSpace(pre)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}

func replaceFirst(haystack, old, new string) string {
	if old == "" {
		return haystack
	}
	idx := strings.Index(haystack, old)
	if idx < 0 {
		return haystack
	}
	return haystack[:idx] + new + haystack[idx+len(old):]
}
