package models

// Span is a half-open character range [Start, End) into an answer string.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ValidFor reports whether the span addresses a real slice of a string of
// n characters.
func (s Span) ValidFor(n int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= n
}

// Citation ties a piece of generated text back to a source document. Span is
// nil when the service returned no anchor for this reference; such citations
// still appear in source listings.
type Citation struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Span     *Span          `json:"span,omitempty"`
}
