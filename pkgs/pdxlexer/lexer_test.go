package pdxlexer

import "testing"

func TestStripBOM(t *testing.T) {
	withBOM := utf8BOM + "foo = bar"
	stripped, had := StripBOM(withBOM)
	if !had || stripped != "foo = bar" {
		t.Fatalf("StripBOM(%q) = (%q, %v), want (%q, true)", withBOM, stripped, had, "foo = bar")
	}
	stripped, had = StripBOM("foo = bar")
	if had || stripped != "foo = bar" {
		t.Fatalf("StripBOM without BOM should be a no-op, got (%q, %v)", stripped, had)
	}
}

func TestNormalizeNewlines(t *testing.T) {
	cases := map[string]string{
		"a\r\nb\r\nc": "a\nb\nc",
		"a\rb\rc":     "a\nb\nc",
		"a\nb":        "a\nb",
	}
	for in, want := range cases {
		if got := NormalizeNewlines(in); got != want {
			t.Errorf("NormalizeNewlines(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitIndent(t *testing.T) {
	indent, rest := SplitIndent("\t\tfoo = bar")
	if indent != "\t\t" || rest != "foo = bar" {
		t.Fatalf("SplitIndent = (%q, %q)", indent, rest)
	}
}

func TestCommentSplit(t *testing.T) {
	cases := []struct {
		in, pre, comment string
		has              bool
	}{
		{`foo = bar # a comment`, `foo = bar `, ` a comment`, true},
		{`foo = "a # not a comment" # real`, `foo = "a # not a comment" `, ` real`, true},
		{`foo = bar`, `foo = bar`, "", false},
		{`# whole line comment`, ``, ` whole line comment`, true},
	}
	for _, c := range cases {
		pre, comment, has := CommentSplit(c.in)
		if pre != c.pre || comment != c.comment || has != c.has {
			t.Errorf("CommentSplit(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.in, pre, comment, has, c.pre, c.comment, c.has)
		}
	}
}

func TestCountBraces(t *testing.T) {
	opens, closes := CountBraces(`foo = { bar = "{ not a brace }" }`, false)
	if opens != 1 || closes != 1 {
		t.Fatalf("CountBraces = (%d, %d), want (1, 1)", opens, closes)
	}
	// Full-line mode counts everything, including what would be a comment.
	opens, closes = CountBraces(`#foo = { #}`, true)
	if opens != 1 || closes != 1 {
		t.Fatalf("CountBraces(fullLine) = (%d, %d), want (1, 1)", opens, closes)
	}
}

func TestMatchIdentifier(t *testing.T) {
	cases := []struct {
		in, ident, rest string
		ok              bool
	}{
		{"europe.0001 = x", "europe.0001", " = x", true},
		{"2.1.1 = {", "2.1.1", " = {", true},
		{"on_birth", "on_birth", "", true},
		{"  leading space", "", "  leading space", false},
	}
	for _, c := range cases {
		ident, rest, ok := MatchIdentifier(c.in)
		if ident != c.ident || rest != c.rest || ok != c.ok {
			t.Errorf("MatchIdentifier(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.in, ident, rest, ok, c.ident, c.rest, c.ok)
		}
	}
}

func TestScanQuoted(t *testing.T) {
	lit, rest, ok := ScanQuoted(`"a \"b\" c" trailer`)
	if !ok || lit != `"a \"b\" c"` || rest != " trailer" {
		t.Fatalf("ScanQuoted = (%q, %q, %v)", lit, rest, ok)
	}
	_, _, ok = ScanQuoted(`"unterminated`)
	if ok {
		t.Fatal("expected unterminated quote to fail")
	}
}
