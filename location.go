package fluence

import "fmt"

// Location is a single point in source text: a zero-based line and
// column pair plus the absolute rune (character) index it corresponds
// to.
type Location struct {
	Line   int
	Column int
	Cursor int
	File   string
}

func (l Location) String() string {
	if l.File != "" {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line+1, l.Column+1)
	}
	return fmt.Sprintf("%d:%d", l.Line+1, l.Column+1)
}

// Span covers a range of source text between two Locations. It is
// attached to tokens, AST-less emission sites, and runtime errors.
type Span struct {
	Start Location
	End   Location
}

func NewSpan(start, end Location) Span {
	return Span{Start: start, End: end}
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		if s.Start.Column == s.End.Column {
			return s.Start.String()
		}
		return fmt.Sprintf("%s-%d", s.Start.String(), s.End.Column+1)
	}
	return fmt.Sprintf("%s-%s", s.Start.String(), s.End.String())
}
