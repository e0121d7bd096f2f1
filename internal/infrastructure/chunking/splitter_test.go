package chunking

import (
	"strings"
	"testing"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

func TestNewSplitterRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
		{"negative overlap", 100, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSplitter(tc.size, tc.overlap); !domain.IsKind(err, domain.ErrInvalidConfig) {
				t.Fatalf("NewSplitter(%d, %d) error = %v, want ErrInvalidConfig", tc.size, tc.overlap, err)
			}
		})
	}
}

func TestSplitEmptyAndShortInput(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	if got := s.Split(""); len(got) != 0 {
		t.Fatalf("Split(empty) = %d chunks, want 0", len(got))
	}
	if got := s.Split("   \n\t  "); len(got) != 0 {
		t.Fatalf("Split(whitespace) = %d chunks, want 0", len(got))
	}

	got := s.Split("  short text  ")
	if len(got) != 1 {
		t.Fatalf("Split(short) = %d chunks, want 1", len(got))
	}
	if got[0].Text != "short text" {
		t.Fatalf("Split(short) text = %q", got[0].Text)
	}
}

func TestSplitOverlapSharing(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	text := strings.Repeat("A", 2000)
	chunks := s.Split(text)

	// Windows start at 0, 800 and 1600: no sentence terminals, hard cuts only.
	if len(chunks) != 3 {
		t.Fatalf("Split() = %d chunks, want 3", len(chunks))
	}
	if len(chunks[0].Text) != 1000 {
		t.Fatalf("first chunk length = %d, want 1000", len(chunks[0].Text))
	}
	for i, c := range chunks {
		if len(c.Text) > 1000 {
			t.Fatalf("chunk %d length = %d, exceeds window", i, len(c.Text))
		}
	}
	if tail, head := chunks[0].Text[800:], chunks[1].Text[:200]; tail != head {
		t.Fatalf("chunks 0/1 do not share the configured overlap")
	}
	if tail, head := chunks[1].Text[800:], chunks[2].Text[:200]; tail != head {
		t.Fatalf("chunks 1/2 do not share the configured overlap")
	}
}

func TestSplitReassemblesOriginalText(t *testing.T) {
	// No whitespace and no sentence terminals, so trimming and boundary
	// adjustment stay out of the picture: dropping each chunk's leading
	// overlap and concatenating must reproduce the input exactly.
	s, err := NewSplitter(64, 16)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	var b strings.Builder
	for i := 0; b.Len() < 1000; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	text := b.String()

	chunks := s.Split(text)
	var assembled strings.Builder
	for i, c := range chunks {
		if i == 0 {
			assembled.WriteString(c.Text)
			continue
		}
		assembled.WriteString(c.Text[16:])
	}
	if assembled.String() != text {
		t.Fatalf("reassembled text differs from input")
	}
}

func TestSplitCutsAtSentenceBoundaries(t *testing.T) {
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	text := strings.TrimSpace(strings.Repeat("The quick brown fox jumps over a dog. ", 20))
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Split() = %d chunks, want several", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, ".") {
			t.Fatalf("chunk %d does not end on a sentence boundary: %q", i, c.Text)
		}
	}
}

func TestSplitOffsetsPointIntoSource(t *testing.T) {
	s, err := NewSplitter(50, 10)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	text := strings.Repeat("Offsets must stay honest. ", 10)
	runes := []rune(text)
	for i, c := range s.Split(text) {
		if got := string(runes[c.Start:c.End]); got != c.Text {
			t.Fatalf("chunk %d offsets [%d:%d] yield %q, want %q", i, c.Start, c.End, got, c.Text)
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	s, err := NewSplitter(80, 25)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}

	text := strings.Repeat("Same input, same output. Every time! No exceptions? None. ", 12)
	first := s.Split(text)
	for run := 0; run < 3; run++ {
		again := s.Split(text)
		if len(again) != len(first) {
			t.Fatalf("run %d produced %d chunks, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d chunk %d = %+v, want %+v", run, i, again[i], first[i])
			}
		}
	}
}
