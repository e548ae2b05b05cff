package pipeline

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence even when followed by a period
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"jr": true, "sr": true, "sen": true, "rep": true, "gov": true, "gen": true,
	"col": true, "lt": true, "sgt": true, "capt": true, "rev": true,
	"inc": true, "corp": true, "co": true, "ltd": true, "vs": true, "no": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "aug": true, "sept": true,
	"oct": true, "nov": true, "dec": true,
}

// Span is a byte range [Start, End) of a text
type Span struct {
	Start int
	End   int
}

// Sentences splits text into sentence spans.
// A sentence ends at '.', '!' or '?' followed by whitespace, or at a blank line.
// Periods after single letters and common abbreviations ("Mr.", "U.S.") do not end a sentence.
func Sentences(text string) []Span {
	spans := []Span{}
	start := 0

	emit := func(end int) {
		s, e := trimSpan(text, start, end)
		if s < e {
			spans = append(spans, Span{Start: s, End: e})
		}
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next := i + size

		switch {
		case r == '\n' && strings.HasPrefix(text[next:], "\n"):
			emit(i)
			start = next + 1
			next = start
		case (r == '.' || r == '!' || r == '?') && followedBySpace(text, next):
			if r == '.' && isAbbreviation(text[start:i]) {
				break
			}
			emit(next)
			start = next
		}
		i = next
	}
	emit(len(text))

	return spans
}

// SentenceContext returns the sentence around the byte span [start, end) of text.
// A span crossing a sentence boundary returns all sentences it touches.
// Offsets are clamped to text.
func SentenceContext(text string, start int, end int) string {
	return NewSentenceIndex(text).Context(start, end)
}

// SentenceIndex splits a text into sentences once for repeated context lookups
type SentenceIndex struct {
	text  string
	spans []Span
}

// NewSentenceIndex splits text into sentences
func NewSentenceIndex(text string) *SentenceIndex {
	return &SentenceIndex{text: text, spans: Sentences(text)}
}

// Context returns the same sentence context as SentenceContext on the indexed text
func (x *SentenceIndex) Context(start int, end int) string {
	text := x.text
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))

	// spans are sorted, so the ones ending before start form a prefix
	first := sort.Search(len(x.spans), func(i int) bool {
		e := x.spans[i].End
		return e > start || (e == start && start == end)
	})

	from, to := -1, -1
	for _, span := range x.spans[first:] {
		if span.Start >= end && !(span.Start == start && start == end) {
			break
		}
		if from < 0 {
			from = span.Start
		}
		to = span.End
	}
	if from < 0 {
		return strings.TrimSpace(text[start:end])
	}
	return text[from:to]
}

func followedBySpace(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

// isAbbreviation reports whether the last word of sentence (before the period) is an abbreviation
func isAbbreviation(sentence string) bool {
	word := sentence
	if i := strings.LastIndexFunc(sentence, unicode.IsSpace); i >= 0 {
		word = sentence[i+1:]
	}
	word = strings.TrimLeftFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 || strings.Contains(word, ".") {
		return true
	}
	return abbreviations[strings.ToLower(word)]
}

func trimSpan(text string, start int, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}
