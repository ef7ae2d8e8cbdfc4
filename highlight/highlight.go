// Package highlight marks cited spans inside a generated answer and renders
// the numbered source footer. Everything here is a pure function of
// (text, citations) so the behavior can be pinned down with literal strings.
package highlight

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"kbchat/models"
)

// WrapFunc wraps one cited substring. index is the 1-based position of the
// citation in the original list, which matches its footer number.
type WrapFunc func(excerpt string, index int) string

// spanRef pairs a citation's original position with its validated span.
type spanRef struct {
	index int
	span  models.Span
}

// Annotate splices each valid citation span through wrap. Citations without a
// span, or with a span that does not fit the text, are skipped here and only
// show up in the footer. Span offsets index characters, not bytes, matching
// what the retrieval service counts. Spans are applied in descending start
// order so that splices at higher offsets cannot shift the offsets still to
// be applied; the prefix below each splice point is untouched, so character
// offsets into it stay valid across iterations.
//
// Overlapping spans produce nested markers; which citation ends up outermost
// follows from the processing order. The upstream service does not define an
// overlap policy, so none is imposed here.
func Annotate(text string, citations []models.Citation, wrap WrapFunc) string {
	length := utf8.RuneCountInString(text)

	refs := make([]spanRef, 0, len(citations))
	for i, c := range citations {
		if c.Span != nil && c.Span.ValidFor(length) {
			refs = append(refs, spanRef{index: i + 1, span: *c.Span})
		}
	}

	sort.Slice(refs, func(a, b int) bool {
		return refs[a].span.Start > refs[b].span.Start
	})

	for _, r := range refs {
		runes := []rune(text)
		before := string(runes[:r.span.Start])
		excerpt := string(runes[r.span.Start:r.span.End])
		after := string(runes[r.span.End:])
		text = before + wrap(excerpt, r.index) + after
	}

	return text
}

// Footer lists every citation that names a source, numbered by its position
// in the original list. Citations without inline spans are still listed.
// Returns "" when nothing is citable.
func Footer(citations []models.Citation) string {
	var b strings.Builder
	for i, c := range citations {
		if c.Source == "" {
			continue
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Source)
		if c.Content != "" {
			fmt.Fprintf(&b, "    %s\n", c.Content)
		}
	}
	return b.String()
}

// Render produces the full marked answer: annotated text plus, when any
// citation has a source, a blank line and the footer.
func Render(text string, citations []models.Citation, wrap WrapFunc) string {
	out := Annotate(text, citations, wrap)
	if footer := Footer(citations); footer != "" {
		out += "\n\n" + footer
	}
	return out
}

// HTMLWrap wraps an excerpt in a <mark> element carrying the citation number,
// the pattern the web client binds its hover excerpts to.
func HTMLWrap(excerpt string, index int) string {
	return fmt.Sprintf(`<mark data-citation="%d">%s</mark>`, index, excerpt)
}

var markTags = regexp.MustCompile(`</?mark[^>]*>`)

// StripTags removes the <mark> wrappers produced by HTMLWrap, recovering the
// original answer text.
func StripTags(s string) string {
	return markTags.ReplaceAllString(s, "")
}
