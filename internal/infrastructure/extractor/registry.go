// Package extractor routes uploads to a format-specific text extractor based
// on file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/extractor/htmldoc"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/extractor/pdf"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/extractor/tabular"
)

type handler interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type Registry struct {
	byExt map[string]handler
}

func NewRegistry() *Registry {
	text := plaintext.New()
	web := htmldoc.New()
	return &Registry{
		byExt: map[string]handler{
			".pdf":  pdf.New(),
			".txt":  text,
			".md":   text,
			".html": web,
			".htm":  web,
			".csv":  tabular.NewCSV(),
			".xlsx": tabular.NewXLSX(),
		},
	}
}

func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[normalizeExt(filename)]
	return ok
}

// SupportedExtensions returns the routable extensions in stable order, for
// the formats endpoint.
func (r *Registry) SupportedExtensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := normalizeExt(filename)
	h, ok := r.byExt[ext]
	if !ok {
		return "", domain.WrapError(
			domain.ErrInvalidInput,
			"extract text",
			fmt.Errorf("unsupported file type %q, supported: %s", ext, strings.Join(r.SupportedExtensions(), ", ")),
		)
	}

	text, err := h.Extract(ctx, data)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, fmt.Sprintf("extract text from %s", filename), err)
	}
	return text, nil
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
