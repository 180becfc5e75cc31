package pdxserializer

import (
	"strings"
	"testing"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
	"github.com/pdxpatch/mergecore/pkgs/pdxparser"
)

func TestSerializeRoundTripUnmodified(t *testing.T) {
	src := "europe.0001 = {\n\ttype = character_event\n\toption = {\n\t\tname = a\n\t}\n}\n\n# trailing comment\n"
	tree, err := pdxparser.Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	out := Serialize(tree)
	out = strings.TrimPrefix(out, outputBOM)
	if out != src {
		t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", out, src)
	}
}

func TestSerializeEmitsBOM(t *testing.T) {
	tree, _ := pdxparser.Parse("foo = bar\n")
	out := Serialize(tree)
	if !strings.HasPrefix(out, outputBOM) {
		t.Fatalf("expected output to start with BOM")
	}
}

func TestSerializeModifiedBlockCanonicalForm(t *testing.T) {
	tree, _ := pdxparser.Parse("on_birth = {\n\teffect = {\n\t\told = 1\n\t}\n}\n")
	block := tree.Root.Children[0]
	effect := block.Children[0]
	effect.Modified = true
	effect.Children = []*pdxast.Node{
		{Kind: pdxast.Property, Name: "set_culture", Value: "bar", Modified: true},
	}
	block.Modified = true

	out := Serialize(tree)
	out = strings.TrimPrefix(out, outputBOM)
	want := "on_birth = {\n\teffect = {\n\t\tset_culture = bar\n\t}\n}\n"
	if out != want {
		t.Fatalf("got:\n%q\nwant:\n%q", out, want)
	}
}

func TestSerializeInlineModified(t *testing.T) {
	tree, _ := pdxparser.Parse("on_game_start = { on_actions = { a } }\n")
	top := tree.Root.Children[0]
	onActions := top.Children[0]
	onActions.Modified = true
	onActions.Children = append(onActions.Children, &pdxast.Node{Kind: pdxast.ListItem, Name: "b"})
	top.Modified = true

	out := Serialize(tree)
	out = strings.TrimPrefix(out, outputBOM)
	want := "on_game_start = { on_actions = { a b } }\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}
