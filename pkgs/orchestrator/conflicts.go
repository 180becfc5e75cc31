package orchestrator

import (
	"sort"

	"github.com/pdxpatch/mergecore/pkgs/merger"
)

// FileConflict records which mods touch a shared path, and whether any of
// them actually differ once normalized — grounded on
// original_source/src/core/scanner.py's ModScanner._find_conflicts, which
// tracks the same file→mods relation before a patch is generated.
type FileConflict struct {
	Path    string
	Mods    []string
	Differs bool
}

// DetectConflicts reports, for --list-conflicts, every path touched by two
// or more of modNames, plus whether their content actually diverges once
// normalized (spec.md names the flag in §6 but never defines its output
// shape; SPEC_FULL §9 supplies this one). It is a pure post-scan query: it
// never merges or writes anything, and a read failure on one mod's copy of
// a file simply excludes that mod from the conflict rather than aborting
// the whole scan, matching the original's broad-catch-and-continue style.
func DetectConflicts(paths, modNames []string, scanner Scanner) []FileConflict {
	var conflicts []FileConflict

	for _, p := range paths {
		if IsExcluded(p) {
			continue
		}
		base, baseOK, _ := scanner.BaseFile(p)
		var baseNorm string
		if baseOK {
			baseNorm = merger.Normalize(string(base))
		}

		var touching []string
		differs := false
		for _, name := range modNames {
			content, ok, err := scanner.ModFile(name, p)
			if err != nil || !ok {
				continue
			}
			touching = append(touching, name)
			if !baseOK || merger.Normalize(string(content)) != baseNorm {
				differs = true
			}
		}

		if len(touching) >= 2 {
			conflicts = append(conflicts, FileConflict{Path: p, Mods: touching, Differs: differs})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
	return conflicts
}
