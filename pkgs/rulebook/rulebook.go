// Package rulebook is the single source of truth for Paradox merge
// semantics (spec §4.3): pure, stateless classification of block names and
// file paths into merge strategies. Every name set and regex below is part
// of the specification and is reproduced exactly.
package rulebook

import (
	"regexp"
	"strings"
)

// TopLevelKind is the merge strategy for a top-level block.
type TopLevelKind int

const (
	AtomicAccumulate TopLevelKind = iota
	MergeableContainer
)

func (s TopLevelKind) String() string {
	if s == AtomicAccumulate {
		return "AtomicAccumulate"
	}
	return "MergeableContainer"
}

// ChildKind is the merge strategy for a named child of a container.
type ChildKind int

const (
	AccumulateList ChildKind = iota
	ReplaceWhole
	Recursive
)

func (s ChildKind) String() string {
	switch s {
	case AccumulateList:
		return "AccumulateList"
	case Recursive:
		return "Recursive"
	default:
		return "ReplaceWhole"
	}
}

// fileContext is the classification of a file path used by
// TopLevelStrategy's decision order.
type fileContext int

const (
	contextUnknown fileContext = iota
	contextAtomic
	contextRecursive
)

var (
	eventNameRe = regexp.MustCompile(`^[a-z_]+\.\d+$`)
	dateNameRe  = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	integerRe   = regexp.MustCompile(`^\d+$`)
)

// atomicPathSegments are path segments that put a file in "atomic" context:
// every top-level block in such a file is an indivisible entity.
var atomicPathSegments = map[string]bool{
	"decisions":               true,
	"events":                  true,
	"character_interactions":  true,
	"schemes":                 true,
	"activities":               true,
}

// recursivePathSegments are path segments that put a file in "recursive"
// context: top-level blocks are mergeable containers by default.
var recursivePathSegments = map[string]bool{
	"on_action":        true,
	"scripted_effects":  true,
}

// guiContainerExact is the small exact-match set of GUI background
// container names (spec §4.3a item 7), beyond the suffix patterns.
var guiContainerExact = map[string]bool{
	"character_view_bg":       true,
	"portrait_background":     true,
	"artifact_background":     true,
	"title_background":        true,
	"province_view_bg":        true,
}

var guiContainerSuffixes = []string{"_bg", "_illustration", "_interior", "_exterior", "_pattern"}

// scriptedEffectPrefixes / scriptedEffectInfixes implement rule 6 of
// TopLevelStrategy and rule 5's scripted-effect-container leg of
// ChildStrategy.
var scriptedEffectPrefixes = []string{"fire_", "setup_", "initialize_", "init_"}
var scriptedEffectInfixes = []string{"_intro_", "_gamestart_", "_setup_", "_spawn_"}

// safeListChildren (§4.3b rule 3) are child names that always accumulate as
// a list regardless of parent, overriding the iterator-pattern rule below.
var safeListChildren = map[string]bool{
	"on_actions":          true,
	"events":              true,
	"random_events":       true,
	"random_on_actions":   true,
	"first_valid":         true,
}

// iteratorPrefixes (§4.3b rule 2) are scripted-effect iterator name
// prefixes that force ReplaceWhole, except for names in safeListChildren.
var iteratorPrefixes = []string{"every_", "random_", "ordered_", "any_"}

// noMergeChildren (§4.3b rule 4) are logical/definition blocks that are
// always treated as an indivisible unit.
var noMergeChildren = map[string]bool{
	// Logical blocks
	"trigger":         true,
	"limit":           true,
	"effect":          true,
	"immediate":       true,
	"after":           true,
	"on_trigger_fail": true,
	"option":          true,
	"desc":            true,
	"ai_chance":       true,
	"ai_will_do":      true,
	"cooldown":        true,
	"cost":            true,
	"weight":          true,
	"weight_multiplier": true,
	"modifier":        true,

	// Event visuals
	"left_portrait":  true,
	"right_portrait": true,
	"lower_left_portrait": true,
	"lower_right_portrait": true,
	"lower_center_portrait": true,
	"major_left_portrait": true,
	"major_right_portrait": true,
	"full_screen_background": true,

	// Decision / interaction / scheme / activity hooks
	"is_shown":      true,
	"is_valid":      true,
	"is_valid_showing_failures_only": true,
	"should_create": true,
	"on_send":       true,
	"on_accept":     true,
	"on_decline":    true,
	"on_execute":    true,
	"on_start":      true,
	"on_complete":   true,
	"on_invalidate": true,

	// GUI widgets
	"background":   true,
	"icon":         true,
	"iconstrip":    true,
	"buttontext":   true,
	"instantTextBoxType": true,

	// Trait / culture / religion / etc. definitions
	"customizer":     true,
	"random_creation": true,
	"doctrine":       true,
	"ethos":          true,
	"heritage":       true,
	"martial_custom": true,
}

// TopLevelStrategy classifies a top-level block by name and file path,
// following the decision order of spec §4.3a exactly: first match wins.
func TopLevelStrategy(blockName, filePath string) TopLevelKind {
	if eventNameRe.MatchString(blockName) {
		return AtomicAccumulate
	}
	if dateNameRe.MatchString(blockName) {
		return AtomicAccumulate
	}

	switch fileContextOf(filePath) {
	case contextAtomic:
		return AtomicAccumulate
	case contextRecursive:
		return MergeableContainer
	}

	if isOnActionContainerName(blockName) {
		return MergeableContainer
	}
	if isScriptedEffectContainerName(blockName) {
		return MergeableContainer
	}
	if isGUIContainerName(blockName) {
		return MergeableContainer
	}
	return AtomicAccumulate
}

// ChildStrategy classifies a named child of parentName, following the
// decision order of spec §4.3b.
func ChildStrategy(childName, parentName string) ChildKind {
	if eventNameRe.MatchString(childName) || dateNameRe.MatchString(childName) || integerRe.MatchString(childName) {
		return ReplaceWhole
	}
	if safeListChildren[childName] {
		return AccumulateList
	}
	if isIteratorName(childName) {
		return ReplaceWhole
	}
	if noMergeChildren[childName] {
		return ReplaceWhole
	}
	if isOnActionContainerName(childName) || isScriptedEffectContainerName(childName) || isGUIContainerName(childName) {
		return Recursive
	}
	return ReplaceWhole
}

// IsSafeToAddChild reports whether a child of childName may be newly
// inserted under a parent named parentName that did not previously have
// it (spec §4.3c): true when the parent is itself a mergeable container,
// or when the child's own strategy is AccumulateList or Recursive.
func IsSafeToAddChild(childName, parentName string) bool {
	if TopLevelStrategy(parentName, "") == MergeableContainer {
		return true
	}
	switch ChildStrategy(childName, parentName) {
	case AccumulateList, Recursive:
		return true
	default:
		return false
	}
}

func fileContextOf(filePath string) fileContext {
	if filePath == "" {
		return contextUnknown
	}
	norm := strings.ReplaceAll(filePath, "\\", "/")
	for _, seg := range strings.Split(norm, "/") {
		if atomicPathSegments[seg] {
			return contextAtomic
		}
		if recursivePathSegments[seg] {
			return contextRecursive
		}
	}
	return contextUnknown
}

func isOnActionContainerName(name string) bool {
	if name == "on_actions" {
		return false
	}
	if strings.HasPrefix(name, "on_") {
		return true
	}
	return strings.Contains(name, "_pulse")
}

func isScriptedEffectContainerName(name string) bool {
	if strings.HasSuffix(name, "_effect") || strings.HasSuffix(name, "_effects") {
		return true
	}
	for _, p := range scriptedEffectPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, in := range scriptedEffectInfixes {
		if strings.Contains(name, in) {
			return true
		}
	}
	return false
}

// IsGUIContainer reports whether name is a GUI background container (spec
// §4.3a rule 7), the trigger for the merger's content-based child matching
// special case (spec §4.4 "GUI-container special case").
func IsGUIContainer(name string) bool {
	return isGUIContainerName(name)
}

func isGUIContainerName(name string) bool {
	if guiContainerExact[name] {
		return true
	}
	for _, suf := range guiContainerSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

func isIteratorName(name string) bool {
	if safeListChildren[name] {
		return false
	}
	for _, p := range iteratorPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
