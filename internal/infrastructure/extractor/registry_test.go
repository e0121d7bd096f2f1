package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

func TestExtractCSVJoinsCells(t *testing.T) {
	r := NewRegistry()
	text, err := r.Extract(context.Background(), "table.csv", []byte("name,age\nada,36\n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "name | age\nada | 36"
	if text != want {
		t.Fatalf("Extract() = %q, want %q", text, want)
	}
}

func TestExtractHTMLDropsScripts(t *testing.T) {
	r := NewRegistry()
	page := `<html><head><style>body{}</style></head><body><h1>Title</h1><script>alert(1)</script><p>Body text.</p></body></html>`
	text, err := r.Extract(context.Background(), "page.html", []byte(page))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "body{}") {
		t.Fatalf("Extract() leaked script/style content: %q", text)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "Body text.") {
		t.Fatalf("Extract() lost visible text: %q", text)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Extract(context.Background(), "archive.zip", []byte("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("Extract(zip) error = %v, want ErrInvalidInput", err)
	}
	if r.Supports("archive.zip") {
		t.Fatalf("Supports(zip) = true")
	}
	if !r.Supports("Report.PDF") {
		t.Fatalf("Supports(PDF) = false, extension matching should be case-insensitive")
	}
}

func TestExtractRejectsBinaryAsText(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Extract(context.Background(), "blob.txt", []byte{0xff, 0xfe, 0x00}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("Extract(binary txt) error = %v, want ErrInvalidInput", err)
	}
}
