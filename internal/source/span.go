package source

import (
	"fmt"
)

// Span is a half-open [Start, End) byte range inside one file.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Range renders the span without its file as "start-end".
func (s Span) Range() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Union covers every span in spans. ok is false for an empty slice.
func Union(spans []Span) (u Span, ok bool) {
	if len(spans) == 0 {
		return Span{}, false
	}
	u = spans[0]
	for _, sp := range spans[1:] {
		u = u.Cover(sp)
	}
	return u, true
}

// Contains reports whether off lies inside s. The end offset counts as inside so
// a cursor placed right after the last byte still hits the span.
func (s Span) Contains(off uint32) bool {
	return off >= s.Start && off <= s.End
}
