package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestModNameFromDir(t *testing.T) {
	cases := map[string]string{
		"/mods/Better Graphics":  "Better Graphics",
		"/mods/Better Graphics/": "Better Graphics",
		"mods\\WinStyle":         "WinStyle",
		"JustAName":              "JustAName",
	}
	for in, want := range cases {
		if got := modNameFromDir(in); got != want {
			t.Errorf("modNameFromDir(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDescriptorGameVersion(t *testing.T) {
	if got := descriptorGameVersion(""); got != "*" {
		t.Errorf("got %q, want *", got)
	}
	if got := descriptorGameVersion("ck3"); got != "ck3-*" {
		t.Errorf("got %q, want ck3-*", got)
	}
}

func TestDirScannerCollectsUnionOfModPaths(t *testing.T) {
	dir := t.TempDir()
	modA := filepath.Join(dir, "ModA")
	modB := filepath.Join(dir, "ModB")
	mustWrite(t, filepath.Join(modA, "common", "a.txt"), "a = 1\n")
	mustWrite(t, filepath.Join(modB, "common", "b.txt"), "b = 1\n")

	scanner, err := newDirScanner(dir, map[string]string{"ModA": modA, "ModB": modB})
	if err != nil {
		t.Fatalf("newDirScanner: %v", err)
	}
	paths, err := scanner.Paths()
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
}

func TestDirScannerModFileMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	modA := filepath.Join(dir, "ModA")
	mustWrite(t, filepath.Join(modA, "common", "a.txt"), "a = 1\n")

	scanner, err := newDirScanner(dir, map[string]string{"ModA": modA})
	if err != nil {
		t.Fatalf("newDirScanner: %v", err)
	}
	_, ok, err := scanner.ModFile("ModA", "common/missing.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a missing mod file")
	}
}

func TestDirWriterCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "patch")
	w := newDirWriter(out)
	if err := w.WriteFile("common/on_action/x.txt", []byte("x = 1\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(out, "common", "on_action", "x.txt"))
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(content) != "x = 1\n" {
		t.Fatalf("got %q", content)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
