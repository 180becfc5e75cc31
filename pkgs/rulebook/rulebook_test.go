package rulebook

import "testing"

func TestTopLevelStrategyEventAndDate(t *testing.T) {
	if got := TopLevelStrategy("europe.0001", "events/europe.txt"); got != AtomicAccumulate {
		t.Fatalf("event name: got %v, want AtomicAccumulate", got)
	}
	if got := TopLevelStrategy("867.1.1", "history/characters/europe.txt"); got != AtomicAccumulate {
		t.Fatalf("date name: got %v, want AtomicAccumulate", got)
	}
}

func TestTopLevelStrategyFileContext(t *testing.T) {
	if got := TopLevelStrategy("anything", "common/decisions/foo.txt"); got != AtomicAccumulate {
		t.Fatalf("decisions path: got %v, want AtomicAccumulate", got)
	}
	if got := TopLevelStrategy("anything", "common/on_action/foo.txt"); got != MergeableContainer {
		t.Fatalf("on_action path: got %v, want MergeableContainer", got)
	}
}

func TestTopLevelStrategyNamePatterns(t *testing.T) {
	cases := map[string]TopLevelKind{
		"on_birth":              MergeableContainer,
		"on_actions":            AtomicAccumulate, // excluded literal
		"heartbeat_pulse":       MergeableContainer,
		"fire_on_action_effect": MergeableContainer,
		"setup_culture_effect":  MergeableContainer,
		"tutorial_intro_events": MergeableContainer,
		"character_view_bg":     MergeableContainer,
		"generic_trait":         AtomicAccumulate,
	}
	for name, want := range cases {
		if got := TopLevelStrategy(name, "common/foo.txt"); got != want {
			t.Errorf("TopLevelStrategy(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestChildStrategy(t *testing.T) {
	cases := []struct {
		child, parent string
		want          ChildKind
	}{
		{"europe.0001", "events", ReplaceWhole},
		{"867.1.1", "history", ReplaceWhole},
		{"42", "characters", ReplaceWhole},
		{"on_actions", "on_birth", AccumulateList},
		{"events", "on_birth", AccumulateList},
		{"every_courtier", "limit", ReplaceWhole},
		{"random_events", "some_container", AccumulateList},
		{"trigger", "option", ReplaceWhole},
		{"effect", "on_birth", ReplaceWhole},
		{"on_game_start_pulse", "some_on_action_hook", Recursive},
		{"fire_setup_effect", "some_scripted_effect_container", Recursive},
		{"unknown_thing", "unknown_parent", ReplaceWhole},
	}
	for _, c := range cases {
		if got := ChildStrategy(c.child, c.parent); got != c.want {
			t.Errorf("ChildStrategy(%q, %q) = %v, want %v", c.child, c.parent, got, c.want)
		}
	}
}

func TestIsSafeToAddChild(t *testing.T) {
	if !IsSafeToAddChild("modA_init", "on_birth") {
		t.Fatalf("adding a new on_action-container child should be safe via the mergeable-container parent path")
	}
	if !IsSafeToAddChild("character:target", "fire_setup_effect") {
		t.Fatalf("scope-target child under a scripted-effect container should be safe (SPEC_FULL open-question resolution)")
	}
	if IsSafeToAddChild("trigger", "option") {
		t.Fatalf("inserting a ReplaceWhole child into a non-container parent should be unsafe")
	}
}
