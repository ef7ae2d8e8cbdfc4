package highlight

import (
	"strings"
	"testing"
	"unicode/utf8"

	"kbchat/models"
)

func span(start, end int) *models.Span {
	return &models.Span{Start: start, End: end}
}

func TestAnnotateRoundTrip(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog."
	citations := []models.Citation{
		{Source: "docs/a.txt", Content: "quick foxes", Span: span(4, 9)},
		{Source: "docs/b.txt", Content: "lazy dogs", Span: span(35, 43)},
		{Source: "docs/c.txt", Content: "no anchor"},
	}

	marked := Annotate(text, citations, HTMLWrap)
	if got := StripTags(marked); got != text {
		t.Errorf("StripTags(Annotate()) = %q, want %q", got, text)
	}
}

func TestAnnotateEmptyCitations(t *testing.T) {
	text := "Nothing to cite here."

	if got := Annotate(text, nil, HTMLWrap); got != text {
		t.Errorf("Annotate() = %q, want unchanged text", got)
	}
	if got := Render(text, nil, HTMLWrap); got != text {
		t.Errorf("Render() = %q, want no footer block", got)
	}
}

func TestAnnotateDegenerateSpan(t *testing.T) {
	text := "A short answer."
	citations := []models.Citation{
		{Source: "docs/empty.txt", Content: "an excerpt", Span: span(3, 3)},
	}

	marked := Annotate(text, citations, HTMLWrap)
	if marked != text {
		t.Errorf("degenerate span must not be marked inline, got %q", marked)
	}

	footer := Footer(citations)
	if !strings.Contains(footer, "[1] docs/empty.txt") {
		t.Errorf("degenerate span citation missing from footer: %q", footer)
	}
}

func TestAnnotateInvalidSpans(t *testing.T) {
	text := "0123456789"
	tests := []struct {
		name string
		span *models.Span
	}{
		{"negative start", span(-1, 4)},
		{"end past text", span(2, 11)},
		{"inverted", span(6, 2)},
		{"nil span", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			citations := []models.Citation{{Source: "docs/x.txt", Span: tt.span}}
			if got := Annotate(text, citations, HTMLWrap); got != text {
				t.Errorf("Annotate() = %q, want unchanged text", got)
			}
		})
	}
}

func TestAnnotateDescendingOrder(t *testing.T) {
	// 20 characters; spans (2,5) and (10,14). Applying (10,14) first must
	// leave the (2,5) substring intact.
	text := "abcdefghijklmnopqrst"
	citations := []models.Citation{
		{Source: "docs/a.txt", Span: span(2, 5)},
		{Source: "docs/b.txt", Span: span(10, 14)},
	}

	marked := Annotate(text, citations, HTMLWrap)

	wantFirst := `<mark data-citation="1">cde</mark>`
	wantSecond := `<mark data-citation="2">klmn</mark>`
	if !strings.Contains(marked, wantFirst) {
		t.Errorf("marked output %q missing %q", marked, wantFirst)
	}
	if !strings.Contains(marked, wantSecond) {
		t.Errorf("marked output %q missing %q", marked, wantSecond)
	}
	if got := StripTags(marked); got != text {
		t.Errorf("StripTags() = %q, want %q", got, text)
	}
}

func TestAnnotateMultibyteText(t *testing.T) {
	// Span offsets count characters. "Zürich" is six characters but seven
	// bytes, so a byte-indexed splice would cut the word short.
	text := "Zürich is the largest city."
	citations := []models.Citation{
		{Source: "docs/ch.txt", Span: span(0, 6)},
	}

	marked := Annotate(text, citations, HTMLWrap)

	want := `<mark data-citation="1">Zürich</mark> is the largest city.`
	if marked != want {
		t.Errorf("Annotate() = %q, want %q", marked, want)
	}
	if got := StripTags(marked); got != text {
		t.Errorf("StripTags() = %q, want %q", got, text)
	}
}

func TestAnnotateSpanInsideMultibyteRune(t *testing.T) {
	text := "héllo"
	citations := []models.Citation{
		{Source: "docs/accent.txt", Span: span(1, 2)},
	}

	marked := Annotate(text, citations, HTMLWrap)

	want := `h<mark data-citation="1">é</mark>llo`
	if marked != want {
		t.Errorf("Annotate() = %q, want %q", marked, want)
	}
	if !utf8.ValidString(marked) {
		t.Errorf("Annotate() produced invalid UTF-8: %q", marked)
	}
}

func TestRenderParisExample(t *testing.T) {
	text := "Paris is the capital."
	citations := []models.Citation{
		{
			Source:  "docs/geo.txt",
			Content: "Paris is France's capital city.",
			Span:    span(0, 5),
		},
	}

	out := Render(text, citations, HTMLWrap)

	if !strings.HasPrefix(out, `<mark data-citation="1">Paris</mark> is the capital.`) {
		t.Errorf("Render() = %q, want marked Paris prefix", out)
	}
	if !strings.Contains(out, "[1] docs/geo.txt") {
		t.Errorf("Render() footer missing geo.txt entry: %q", out)
	}
	if !strings.Contains(out, "Paris is France's capital city.") {
		t.Errorf("Render() footer missing excerpt: %q", out)
	}
}

func TestFooterOrderAndNumbering(t *testing.T) {
	citations := []models.Citation{
		{Source: "docs/one.txt", Span: span(5, 9)},
		{Source: ""}, // no source: skipped entirely
		{Source: "docs/three.txt"},
	}

	footer := Footer(citations)

	oneAt := strings.Index(footer, "[1] docs/one.txt")
	threeAt := strings.Index(footer, "[3] docs/three.txt")
	if oneAt == -1 || threeAt == -1 {
		t.Fatalf("footer missing entries: %q", footer)
	}
	if oneAt > threeAt {
		t.Errorf("footer out of original order: %q", footer)
	}
	if strings.Contains(footer, "[2]") {
		t.Errorf("sourceless citation should be skipped, got %q", footer)
	}
}

func TestAnnotateWrapIndexMatchesFooterNumber(t *testing.T) {
	text := "alpha beta gamma"
	citations := []models.Citation{
		{Source: "docs/a.txt"},                     // footer [1], no span
		{Source: "docs/b.txt", Span: span(11, 16)}, // footer [2]
	}

	var gotIndex int
	Annotate(text, citations, func(excerpt string, index int) string {
		gotIndex = index
		return excerpt
	})

	if gotIndex != 2 {
		t.Errorf("wrap index = %d, want 2", gotIndex)
	}
}
