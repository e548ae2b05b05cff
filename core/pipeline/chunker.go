package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize keeps a chunk well inside the 512 token window of distilbert-NER
const DefaultChunkSize = 1500

// Chunk is a piece of a text and the byte offset it starts at
type Chunk struct {
	Text   string
	Offset int
}

// SentenceChunks groups consecutive sentences into chunks of at most maxBytes.
// Sentences longer than maxBytes are cut at whitespace, or at a rune boundary when a word is longer.
// Adding Offset to a span found in a chunk gives the span in text.
func SentenceChunks(text string, maxBytes int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return []Chunk{}
	}
	if maxBytes <= 0 || len(text) <= maxBytes {
		return []Chunk{{Text: text, Offset: 0}}
	}
	// a chunk holds at least one rune
	maxBytes = max(maxBytes, utf8.UTFMax)

	chunks := []Chunk{}
	start, end := -1, -1
	flush := func() {
		if start >= 0 {
			chunks = append(chunks, Chunk{Text: text[start:end], Offset: start})
			start = -1
		}
	}

	for _, sentence := range Sentences(text) {
		for _, piece := range splitLong(text, sentence, maxBytes) {
			if start >= 0 && piece.End-start > maxBytes {
				flush()
			}
			if start < 0 {
				start = piece.Start
			}
			end = piece.End
		}
	}
	flush()

	return chunks
}

// splitLong cuts a span into pieces of at most maxBytes
func splitLong(text string, span Span, maxBytes int) []Span {
	pieces := []Span{}
	s := span.Start
	for span.End-s > maxBytes {
		cut := s + maxBytes
		for cut > s && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if i := strings.LastIndexFunc(text[s:cut], unicode.IsSpace); i > 0 {
			cut = s + i
		}
		if cut == s {
			_, size := utf8.DecodeRuneInString(text[s:])
			cut = s + size
		}

		ps, pe := trimSpan(text, s, cut)
		if ps < pe {
			pieces = append(pieces, Span{Start: ps, End: pe})
		}
		s, _ = trimSpan(text, cut, span.End)
	}
	if s < span.End {
		pieces = append(pieces, Span{Start: s, End: span.End})
	}
	return pieces
}
