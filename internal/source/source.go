// Package source wraps the raw UTF-8 source buffer that every later pipeline
// stage addresses by byte offset rather than by copying text around.
package source

// Location is the 4-tuple every token, AST node, and runtime error carries
// for diagnostics: a byte cursor into the buffer, the 1-based line it starts
// on, the column (byte offset local to that line), and its length in bytes.
type Location struct {
	Cursor     int
	Line       int
	LineOffset int
	Length     int
}

// Merge returns a location spanning from loc through the end of other,
// keeping loc's start position. Used to build a node's source range out of
// the locations of its first and last tokens.
func (loc Location) Merge(other Location) Location {
	end := other.Cursor + other.Length
	return Location{
		Cursor:     loc.Cursor,
		Line:       loc.Line,
		LineOffset: loc.LineOffset,
		Length:     end - loc.Cursor,
	}
}

// Buffer holds the source text and recovers lexemes from locations.
type Buffer struct {
	text []byte
}

// New wraps src for lexeme lookups.
func New(src string) *Buffer {
	return &Buffer{text: []byte(src)}
}

// Len reports the size of the buffer in bytes.
func (b *Buffer) Len() int {
	return len(b.text)
}

// At returns the byte at i, or 0 if i is out of range.
func (b *Buffer) At(i int) byte {
	if i < 0 || i >= len(b.text) {
		return 0
	}
	return b.text[i]
}

// Lexeme slices the buffer according to loc. Callers must ensure loc falls
// within bounds; it always does for locations produced by the scanner.
func (b *Buffer) Lexeme(loc Location) string {
	start := loc.Cursor
	end := start + loc.Length
	if start < 0 {
		start = 0
	}
	if end > len(b.text) {
		end = len(b.text)
	}
	if start > end {
		return ""
	}
	return string(b.text[start:end])
}
