package dquery

// SpanQuery requires a block to carry a span with the given label and/or text.
type SpanQuery struct {
	Label *string `json:"label,omitempty"`
	Text  *string `json:"text,omitempty"`
}

// Filter is the structured form of a query: block type, one free-text
// constraint and any number of span constraints.
type Filter struct {
	BlockType *string     `json:"blockType,omitempty"`
	Text      *string     `json:"text,omitempty"`
	TextMode  *string     `json:"textMode,omitempty"`
	HasSpans  []SpanQuery `json:"hasSpans,omitempty"`
}

// Fold reduces tokens to a Filter. Block type and text are last-wins;
// span constraints accumulate in order.
func Fold(tokens []Token) Filter {
	var f Filter
	for _, t := range tokens {
		switch t.Command {
		case None:
			f.BlockType = t.Content
		case Hash:
			f.Text = t.Content
			f.TextMode = t.Modifier
		case At:
			f.HasSpans = append(f.HasSpans, SpanQuery{Label: t.Modifier, Text: t.Content})
		}
	}
	return f
}

// Parse tokenizes and folds a query.
func Parse(query string) Filter {
	return Fold(Tokenize(query))
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.BlockType == nil && f.Text == nil && f.TextMode == nil && len(f.HasSpans) == 0
}
