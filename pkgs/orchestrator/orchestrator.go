// Package orchestrator is the patch-run boundary (spec §4.6): for every
// mod-relative path touched by at least one submod, it decides whether to
// skip, merge, or copy verbatim, then drives the merge core and validator
// across a bounded worker pool. It owns no filesystem access itself — a
// caller-supplied Scanner/Writer pair is the only I/O boundary, matching
// spec.md §1's "out of scope" list (filesystem scanning, directory
// writing are external collaborators, not this module's concern).
//
// Grounded on original_source/src/core/scanner.py's per-file conflict
// detection and patch_generator.py's merge-or-copy decision loop, and on
// the teacher's cmd/devcmd generation's top-level driver shape.
package orchestrator

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/pdxpatch/mergecore/pkgs/merger"
	"github.com/pdxpatch/mergecore/pkgs/pdxerrors"
	"github.com/pdxpatch/mergecore/pkgs/validator"
)

// Scanner is the external collaborator that knows how to read base and
// mod file content; implemented by the caller (cmd/pdxpatch ships a
// trivial directory-backed one), per spec.md §1's scope boundary.
type Scanner interface {
	// BaseFile returns the base's content for a mod-relative path, or ok=false if absent.
	BaseFile(relPath string) (content []byte, ok bool, err error)
	// ModFile returns a submod's content for a mod-relative path, or ok=false if absent.
	ModFile(modName, relPath string) (content []byte, ok bool, err error)
	// Paths lists every mod-relative path touched by at least one submod.
	Paths() ([]string, error)
}

// Writer is the external collaborator that persists a run's output.
type Writer interface {
	WriteFile(relPath string, content []byte) error
	CopyVerbatim(relPath string, content []byte) error
}

// Status classifies the outcome of processing one file, reported through
// ProgressFunc (spec §5).
type Status string

const (
	StatusMerged  Status = "merged"
	StatusCopied  Status = "copied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ProgressFunc is a fire-and-forget progress callback (spec §5): the core
// never blocks on it. It fires once per processed file, reporting how many
// files have completed (index) out of total, and that file's outcome.
type ProgressFunc func(currentFile string, index, total int, status Status)

// Stats is the run's statistics record (spec §7), YAML-serializable for
// the CLI's --verbose summary and the generated README.
type Stats struct {
	Total    int      `yaml:"total"`
	Merged   int      `yaml:"merged"`
	Copied   int      `yaml:"copied"`
	Skipped  int      `yaml:"skipped"`
	Failed   int      `yaml:"failed"`
	Errors   []string `yaml:"errors"`
	Warnings []string `yaml:"warnings"`
}

func (s *Stats) recordError(msg string) {
	s.Failed++
	s.Errors = append(s.Errors, msg)
}

func (s *Stats) recordWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Ignored folders are never scanned for mergeable/copyable content (spec §6).
var ignoredFolders = map[string]bool{
	"fonts": true, "music": true, "sound": true, "tools": true,
	"dlc": true, "dlc_metadata": true, "localization": true,
	"map_data": true, "content_source": true, "portraits": true,
	"coat_of_arms": true,
}

// Ignored extensions are binary/asset/localization formats never touched (spec §6).
var ignoredExtensions = map[string]bool{
	".dds": true, ".png": true, ".jpg": true, ".jpeg": true, ".tga": true,
	".bmp": true, ".wav": true, ".ogg": true, ".mp3": true, ".ttf": true,
	".otf": true, ".fnt": true, ".yml": true,
}

// Mergeable extensions and top folders gate whether the structural merger
// runs at all, versus a plain verbatim copy of the highest-priority change
// (spec §6).
var mergeableExtensions = map[string]bool{".txt": true, ".gui": true, ".gfx": true}

var mergeableTopFolders = map[string]bool{
	"common": true, "events": true, "history": true, "decisions": true,
	"gui": true, "interface": true, "gfx": true, "scripted_triggers": true,
	"scripted_effects": true, "on_actions": true,
}

// IsExcluded reports whether relPath is never processed at all (spec §4.6
// step 1): binary/asset extensions, the ignored folders, and
// descriptor.mod itself.
func IsExcluded(relPath string) bool {
	norm := strings.ReplaceAll(relPath, "\\", "/")
	if path.Base(norm) == "descriptor.mod" {
		return true
	}
	if ignoredExtensions[strings.ToLower(path.Ext(norm))] {
		return true
	}
	segs := strings.Split(norm, "/")
	if len(segs) > 0 && ignoredFolders[segs[0]] {
		return true
	}
	return false
}

// IsMergeable reports whether relPath's extension and top folder are in
// the mergeable set (spec §4.6 step 5); otherwise a changed file is
// copied verbatim rather than structurally merged.
func IsMergeable(relPath string) bool {
	norm := strings.ReplaceAll(relPath, "\\", "/")
	segs := strings.Split(norm, "/")
	if len(segs) == 0 || !mergeableTopFolders[segs[0]] {
		return false
	}
	return mergeableExtensions[strings.ToLower(path.Ext(norm))]
}

// Config bundles Run's inputs beyond the Scanner/Writer pair.
type Config struct {
	// ModOrder is every submod name, in ascending priority (last wins ties).
	ModOrder []string
	Progress ProgressFunc
	// Workers bounds the concurrent file-processing pool; 0 defaults to 4.
	Workers int
}

// Run processes every path the Scanner reports, fanning work out across a
// bounded worker pool (spec §5: "files are independent and may be
// processed in parallel... no locking required because each worker writes
// to a distinct output path"). Cancellation is cooperative: ctx is checked
// before each file starts.
func Run(ctx context.Context, scanner Scanner, writer Writer, cfg Config) (*Stats, error) {
	paths, err := scanner.Paths()
	if err != nil {
		return nil, pdxerrors.NewIOError("<scan>", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	stats := &Stats{}
	var mu sync.Mutex
	var completed int
	total := len(paths)

	jobs := make(chan string, len(paths))
	for _, p := range paths {
		jobs <- p
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for relPath := range jobs {
				if ctx.Err() != nil {
					return
				}
				status := processFile(relPath, scanner, writer, cfg.ModOrder, stats, &mu)

				mu.Lock()
				completed++
				index := completed
				mu.Unlock()

				if cfg.Progress != nil {
					cfg.Progress(relPath, index, total, status)
				}
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

// processFile implements spec §4.6's per-file decision chain. It returns
// the outcome status; Stats fields are updated under mu since workers run
// concurrently.
func processFile(relPath string, scanner Scanner, writer Writer, modOrder []string, stats *Stats, mu *sync.Mutex) Status {
	mu.Lock()
	stats.Total++
	mu.Unlock()

	if IsExcluded(relPath) {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return StatusSkipped
	}

	baseContent, ok, err := scanner.BaseFile(relPath)
	if err != nil {
		mu.Lock()
		stats.recordError(fmt.Sprintf("%s: reading base: %v", relPath, err))
		mu.Unlock()
		return StatusFailed
	}
	if !ok {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return StatusSkipped
	}
	baseText := string(baseContent)
	baseNorm := merger.Normalize(baseText)

	var mods []merger.ModInput
	var lastChanged []byte
	for _, name := range modOrder {
		content, ok, err := scanner.ModFile(name, relPath)
		if err != nil {
			mu.Lock()
			stats.recordError(fmt.Sprintf("%s: reading mod %s: %v", relPath, name, err))
			mu.Unlock()
			return StatusFailed
		}
		if !ok {
			continue
		}
		text := string(content)
		if merger.Normalize(text) == baseNorm {
			continue
		}
		mods = append(mods, merger.ModInput{Name: name, Text: text})
		lastChanged = content
	}

	if len(mods) == 0 {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return StatusSkipped
	}

	if !IsMergeable(relPath) {
		if err := writer.CopyVerbatim(relPath, lastChanged); err != nil {
			mu.Lock()
			stats.recordError(fmt.Sprintf("%s: writing copy: %v", relPath, err))
			mu.Unlock()
			return StatusFailed
		}
		mu.Lock()
		stats.Copied++
		mu.Unlock()
		return StatusCopied
	}

	mergedText, _, mergeErr := merger.Merge(baseText, mods, relPath)
	if mergeErr == nil {
		report := validator.Validate(mergedText, relPath)
		if !report.OK() {
			mergeErr = report.Errors[0]
		} else {
			mu.Lock()
			for _, w := range report.Warnings {
				stats.recordWarning(w)
			}
			mu.Unlock()
		}
	}

	if mergeErr != nil {
		// Failure semantics (spec §4.6/§7): fall back to copying the last
		// changed mod's file verbatim rather than producing a broken merge.
		if err := writer.CopyVerbatim(relPath, lastChanged); err != nil {
			mu.Lock()
			stats.recordError(fmt.Sprintf("%s: fallback copy failed: %v", relPath, err))
			mu.Unlock()
			return StatusFailed
		}
		mu.Lock()
		stats.recordError(fmt.Sprintf("%s: %v", relPath, mergeErr))
		mu.Unlock()
		return StatusFailed
	}

	if err := writer.WriteFile(relPath, []byte(mergedText)); err != nil {
		mu.Lock()
		stats.recordError(fmt.Sprintf("%s: writing merged file: %v", relPath, err))
		mu.Unlock()
		return StatusFailed
	}
	mu.Lock()
	stats.Merged++
	mu.Unlock()
	return StatusMerged
}
