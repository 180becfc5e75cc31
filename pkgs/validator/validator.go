// Package validator runs the post-merge checks of spec §4.5 over a
// merged file's text: brace balance (an error, triggering the
// orchestrator's verbatim-copy fallback), duplicate top-level event
// blocks (an error), and event well-formedness (a warning, only for
// paths under an events/ segment). Grounded on
// original_source/src/core/patch_generator.py's validation pass, which
// keeps the same errors-vs-warnings split before a merged file is
// written.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
	"github.com/pdxpatch/mergecore/pkgs/pdxerrors"
	"github.com/pdxpatch/mergecore/pkgs/pdxparser"
)

var eventNameRe = regexp.MustCompile(`^[a-z_]+\.\d+$`)

// Report is the outcome of validating one merged file: Errors block the
// write (the orchestrator falls back to a verbatim copy); Warnings are
// advisory and never block anything.
type Report struct {
	Errors   []*pdxerrors.MergeError
	Warnings []string
}

// OK reports whether the merge may be written as-is.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs all three checks against text, the merged content for
// a file at filePath. Parsing the already-merged text is how brace
// balance is (re)established here — the merger's own post-merge check
// (spec §4.4) only short-circuits the same failure earlier; Validate is
// the one the orchestrator calls before writing.
func Validate(text, filePath string) *Report {
	report := &Report{}

	tree, err := pdxparser.Parse(text)
	if err != nil {
		report.Errors = append(report.Errors, pdxerrors.Wrap(pdxerrors.KindValidator, "parsing merged output failed", err).WithContext("path", filePath))
		return report
	}
	if tree.UnbalancedBraces {
		report.Errors = append(report.Errors, pdxerrors.New(pdxerrors.KindValidator,
			fmt.Sprintf("unbalanced braces in %q: %d open, %d close", filePath, tree.OpenCount, tree.CloseCount)).
			WithContext("path", filePath).
			WithContext("opens", tree.OpenCount).
			WithContext("closes", tree.CloseCount))
	}

	checkDuplicateEvents(tree, filePath, report)

	if isUnderEvents(filePath) {
		checkEventWellFormedness(tree, filePath, report)
	}

	return report
}

// checkDuplicateEvents requires every top-level block whose name
// matches the event-ID pattern to appear at most once (spec §4.5 rule
// 2). Two mods independently defining the same event ID is a
// collision the merger cannot arbitrate structurally, so it is an
// error rather than a silent last-wins.
func checkDuplicateEvents(tree *pdxast.Tree, filePath string, report *Report) {
	seen := map[string]bool{}
	for _, c := range tree.Root.Children {
		if c.Kind != pdxast.Block || !eventNameRe.MatchString(c.Name) {
			continue
		}
		if seen[c.Name] {
			report.Errors = append(report.Errors, pdxerrors.New(pdxerrors.KindValidator,
				fmt.Sprintf("duplicate event block %q in %q", c.Name, filePath)).
				WithContext("path", filePath).
				WithContext("event", c.Name))
			continue
		}
		seen[c.Name] = true
	}
}

// checkEventWellFormedness warns (never errors) when an event block is
// missing a type or an option, for files under an events/ path segment
// (spec §4.5 rule 3).
func checkEventWellFormedness(tree *pdxast.Tree, filePath string, report *Report) {
	for _, c := range tree.Root.Children {
		if c.Kind != pdxast.Block || !eventNameRe.MatchString(c.Name) {
			continue
		}
		hasType := false
		hasOption := false
		for _, child := range c.Children {
			switch {
			case child.Kind == pdxast.Property && child.Name == "type":
				hasType = true
			case child.Kind == pdxast.Block && child.Name == "option":
				hasOption = true
			}
		}
		if !hasType {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: event %q has no type", filePath, c.Name))
		}
		if !hasOption {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: event %q has no option", filePath, c.Name))
		}
	}
}

func isUnderEvents(filePath string) bool {
	norm := strings.ReplaceAll(filePath, "\\", "/")
	for _, seg := range strings.Split(norm, "/") {
		if seg == "events" {
			return true
		}
	}
	return false
}
