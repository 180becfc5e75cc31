package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// dirScanner is the trivial directory-backed orchestrator.Scanner named in
// SPEC_FULL §4.6: real mod discovery/filesystem walking
// is out of scope for the core, but the reference CLI needs *something*
// concrete to drive it end-to-end over a real directory tree.
type dirScanner struct {
	baseDir string
	modDirs map[string]string // mod name -> directory
	paths   []string          // every relative path touched by at least one mod
}

// newDirScanner walks every mod directory and records the union of
// relative paths they touch, sorted for deterministic Run ordering.
func newDirScanner(baseDir string, modDirs map[string]string) (*dirScanner, error) {
	seen := map[string]bool{}
	for modName, dir := range modDirs {
		err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			seen[rel] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking mod %q (%s): %w", modName, dir, err)
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return &dirScanner{baseDir: baseDir, modDirs: modDirs, paths: paths}, nil
}

func (s *dirScanner) BaseFile(relPath string) ([]byte, bool, error) {
	return readFile(filepath.Join(s.baseDir, filepath.FromSlash(relPath)))
}

func (s *dirScanner) ModFile(modName, relPath string) ([]byte, bool, error) {
	dir, ok := s.modDirs[modName]
	if !ok {
		return nil, false, nil
	}
	return readFile(filepath.Join(dir, filepath.FromSlash(relPath)))
}

func (s *dirScanner) Paths() ([]string, error) {
	return s.paths, nil
}

// readFile reads a file, reporting ok=false rather than an error when it
// simply doesn't exist (a mod not touching a given path is the common
// case, not a failure). Content is normalized to NFC so that mods shipping
// the same text under a different Unicode decomposition don't spuriously
// register as a conflicting edit.
func readFile(path string) ([]byte, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(norm.NFC.String(string(content))), true, nil
}

// dirWriter is the trivial directory-backed orchestrator.Writer: every
// write lands under outputDir, creating parent directories as needed.
// outputDir is used as found; files already in it are neither removed nor
// checked for.
type dirWriter struct {
	outputDir string
}

func newDirWriter(outputDir string) *dirWriter {
	return &dirWriter{outputDir: outputDir}
}

func (w *dirWriter) WriteFile(relPath string, content []byte) error {
	return w.write(relPath, content)
}

func (w *dirWriter) CopyVerbatim(relPath string, content []byte) error {
	return w.write(relPath, content)
}

func (w *dirWriter) write(relPath string, content []byte) error {
	full := filepath.Join(w.outputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0o644)
}
