package report

// TextSpan represents a range of source text used to point a diagnostic at
// the code that caused it. EndLine is inclusive and EndCol is exclusive
// (one past the last character); lines and columns are zero-indexed.
type TextSpan struct {
	StartLine, StartCol int
	EndLine, EndCol     int
}

// SpanOver returns a span that covers both a and b.
func SpanOver(a, b *TextSpan) *TextSpan {
	return &TextSpan{
		StartLine: a.StartLine,
		StartCol:  a.StartCol,
		EndLine:   b.EndLine,
		EndCol:    b.EndCol,
	}
}
