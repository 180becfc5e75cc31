package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pdxpatch/mergecore/pkgs/orchestrator"
	"github.com/pdxpatch/mergecore/pkgs/pdxast"
	"github.com/pdxpatch/mergecore/pkgs/pdxparser"
)

// readModDescriptor extracts the pre-flight compatibility fields
// CheckModGraph needs from a mod's descriptor.mod, by convention an
// `incompatible_with = { "Other Mod" }` list alongside the usual
// version/tags/name fields. descriptor.mod itself is excluded from the
// merge (spec §6), so this is the only place this module's code ever
// reads one.
func readModDescriptor(modName, modDir string) orchestrator.ModDescriptor {
	desc := orchestrator.ModDescriptor{Name: modName}

	content, err := os.ReadFile(filepath.Join(modDir, "descriptor.mod"))
	if err != nil {
		return desc
	}

	tree, err := pdxparser.Parse(string(content))
	if err != nil {
		return desc
	}

	for _, c := range tree.Root.Children {
		if c.Kind == pdxast.Block && c.Name == "incompatible_with" {
			for _, item := range c.ListItems() {
				desc.IncompatibleWith = append(desc.IncompatibleWith, strings.Trim(item, `"`))
			}
		}
	}
	return desc
}
