package chunking

import (
	"errors"
	"unicode"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

// boundaryLookback is how far back from the provisional cut the splitter
// searches for a sentence boundary. Never more than half the window, so a
// pathological text cannot shrink chunks below size/2.
const boundaryLookback = 100

// Splitter cuts text into overlapping windows of ChunkSize runes, advancing
// ChunkSize-Overlap per step. Before each hard cut it scans backward for the
// nearest sentence-terminal rune followed by whitespace and cuts there
// instead, so chunks tend to end on full sentences.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", errors.New("chunk size must be positive"))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", errors.New("overlap must be in [0, chunk size)"))
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}, nil
}

// Split is deterministic: same text and parameters always produce the same
// spans. Empty input yields no spans; input shorter than the window yields a
// single trimmed span.
func (s *Splitter) Split(text string) []domain.ChunkSpan {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]domain.ChunkSpan, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := s.sentenceCut(runes, start, end); cut > start {
			end = cut
		}

		if span, ok := trimSpan(runes, start, end); ok {
			out = append(out, span)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// sentenceCut returns the position just after the last sentence-terminal rune
// within the lookback tail of the window, or 0 if none qualifies. A terminal
// counts only when followed by whitespace, which keeps decimals like "3.14"
// intact (abbreviations such as "Mr." still split; acceptable heuristic).
func (s *Splitter) sentenceCut(runes []rune, start, end int) int {
	lookback := boundaryLookback
	if half := (end - start) / 2; lookback > half {
		lookback = half
	}
	for i := end - 1; i >= end-lookback && i > start; i-- {
		if !isSentenceTerminal(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		return i + 1
	}
	return 0
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// trimSpan strips surrounding whitespace while keeping rune offsets pointing
// into the original text.
func trimSpan(runes []rune, start, end int) (domain.ChunkSpan, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start == end {
		return domain.ChunkSpan{}, false
	}
	return domain.ChunkSpan{Text: string(runes[start:end]), Start: start, End: end}, true
}
