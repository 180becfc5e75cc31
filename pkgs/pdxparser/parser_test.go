package pdxparser

import (
	"testing"

	"github.com/pdxpatch/mergecore/pkgs/pdxast"
)

func mustParse(t *testing.T, src string) *pdxast.Tree {
	t.Helper()
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return tree
}

func TestParseSimpleBlock(t *testing.T) {
	src := "europe.0001 = {\n\ttype = character_event\n\toption = {\n\t\tname = a\n\t}\n}\n"
	tree := mustParse(t, src)
	if tree.UnbalancedBraces {
		t.Fatalf("expected balanced braces")
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("expected 1 top-level child, got %d", len(tree.Root.Children))
	}
	event := tree.Root.Children[0]
	if event.Kind != pdxast.Block || event.Name != "europe.0001" {
		t.Fatalf("unexpected top block: %+v", event)
	}
	if len(event.Children) != 2 {
		t.Fatalf("expected 2 children (type, option), got %d: %+v", len(event.Children), event.Children)
	}
	typeProp := event.Children[0]
	if typeProp.Kind != pdxast.Property || typeProp.Name != "type" || typeProp.Value != "character_event" {
		t.Fatalf("unexpected type property: %+v", typeProp)
	}
	option := event.Children[1]
	if option.Kind != pdxast.Block || option.Name != "option" || len(option.Children) != 1 {
		t.Fatalf("unexpected option block: %+v", option)
	}
}

func TestParseInlineBlock(t *testing.T) {
	src := `on_game_start = { on_actions = { vanilla_init modA_init } }` + "\n"
	tree := mustParse(t, src)
	top := tree.Root.Children[0]
	if !top.Inline {
		t.Fatalf("expected inline top block")
	}
	onActions := top.Children[0]
	if onActions.Name != "on_actions" || !onActions.Inline {
		t.Fatalf("unexpected on_actions: %+v", onActions)
	}
	items := onActions.ListItems()
	if len(items) != 2 || items[0] != "vanilla_init" || items[1] != "modA_init" {
		t.Fatalf("unexpected list items: %v", items)
	}
}

func TestParseCommentedBlock(t *testing.T) {
	src := "#test.1 = {\n#\ttype = character_event\n#}\n"
	tree := mustParse(t, src)
	if tree.UnbalancedBraces {
		t.Fatalf("expected balanced braces for commented block")
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d: %+v", len(tree.Root.Children), tree.Root.Children)
	}
	block := tree.Root.Children[0]
	if !block.IsCommented || block.Name != "test.1" {
		t.Fatalf("unexpected commented block: %+v", block)
	}
	if len(block.Children) != 1 || block.Children[0].Name != "type" {
		t.Fatalf("unexpected commented block children: %+v", block.Children)
	}
}

func TestParseTrailingComment(t *testing.T) {
	src := "foo = bar # a note\n"
	tree := mustParse(t, src)
	prop := tree.Root.Children[0]
	if prop.Value != "bar" || prop.TrailingComment != " a note" {
		t.Fatalf("unexpected property: %+v", prop)
	}
}

func TestParseQuotedCommentIsNotAComment(t *testing.T) {
	src := `texture = "gfx/interface/# not a comment.dds"` + "\n"
	tree := mustParse(t, src)
	prop := tree.Root.Children[0]
	if prop.TrailingComment != "" {
		t.Fatalf("expected no trailing comment, got %q", prop.TrailingComment)
	}
	if prop.Value != `"gfx/interface/# not a comment.dds"` {
		t.Fatalf("unexpected value: %q", prop.Value)
	}
}

func TestParseUnbalancedBraces(t *testing.T) {
	src := "foo = {\n\tbar = 1\n"
	tree := mustParse(t, src)
	if !tree.UnbalancedBraces {
		t.Fatalf("expected unbalanced braces to be detected")
	}
}

func TestParseNeverErrorsOnGarbage(t *testing.T) {
	src := "}}} = } { #\"unterminated\n??? ===\n"
	if _, err := Parse(src); err != nil {
		t.Fatalf("Parse must never error on malformed structural input, got %v", err)
	}
}

// Inside a commented-out block, the whole line counts toward the brace
// tally (spec §9) — not just whatever precedes a nested '#'. A commented
// block holding one inline block and a trailing `# trailing { note` remark
// must report balanced open/close counts.
func TestCountAllBracesInsideCommentedBlock(t *testing.T) {
	src := "#test.1 = {\n#\tfoo = { bar = 1 } # trailing { note\n#}\n"
	tree := mustParse(t, src)
	if tree.OpenCount != tree.CloseCount {
		t.Fatalf("expected balanced commented-block brace counts, got opens=%d closes=%d", tree.OpenCount, tree.CloseCount)
	}
	if tree.OpenCount != 2 || tree.CloseCount != 2 {
		t.Fatalf("got opens=%d closes=%d, want 2/2", tree.OpenCount, tree.CloseCount)
	}
}

func TestParseRepeatedChildNamesArePositional(t *testing.T) {
	src := "block = {\n\tif = {\n\t\ta = 1\n\t}\n\tif = {\n\t\tb = 2\n\t}\n}\n"
	tree := mustParse(t, src)
	block := tree.Root.Children[0]
	idx := block.NamedChildIndices("if")
	if len(idx) != 2 {
		t.Fatalf("expected 2 positional 'if' children, got %d", len(idx))
	}
}

func TestParseBOMPreserved(t *testing.T) {
	tree := mustParse(t, "\xEF\xBB\xBFfoo = bar\n")
	if !tree.HadBOM {
		t.Fatalf("expected BOM to be detected")
	}
}
