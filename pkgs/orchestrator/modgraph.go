package orchestrator

import (
	"fmt"
	"sort"

	"github.com/pdxpatch/mergecore/pkgs/pdxerrors"
)

// ModDescriptor is the subset of a mod's descriptor.mod this module cares
// about for the pre-flight compatibility check — name plus any mods it
// declares itself incompatible with. Full descriptor parsing (version,
// tags, supported_version) belongs to the external Scanner; this module
// only consumes what CheckModGraph needs.
type ModDescriptor struct {
	Name             string
	IncompatibleWith []string
}

// CheckModGraph runs the pre-flight compatibility pass (SPEC_FULL §9,
// grounded on original_source's scanner.py/smart_merger.py flagging
// mutually-exclusive mods before a merge starts): it reports the first
// pair of mods, taking the declaring mods in alphabetical order of name,
// where one declares the other incompatible. A run should refuse to start rather than silently
// merge two mods their own authors marked as conflicting.
func CheckModGraph(mods []ModDescriptor) error {
	byName := make(map[string]ModDescriptor, len(mods))
	for _, m := range mods {
		byName[m.Name] = m
	}

	var names []string
	for _, m := range mods {
		names = append(names, m.Name)
	}
	sort.Strings(names)

	for _, a := range names {
		for _, bad := range byName[a].IncompatibleWith {
			if _, present := byName[bad]; present {
				return pdxerrors.NewIncompatibleModGraphError(
					fmt.Sprintf("%q declares itself incompatible with %q, both are in this run", a, bad))
			}
		}
	}
	return nil
}
