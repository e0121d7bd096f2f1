package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// Extractor handles .txt and .md uploads. Markdown is treated as plain text:
// formatting markers embed fine and chunk fine.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("file is not valid utf-8 text")
	}
	return strings.TrimSpace(string(data)), nil
}
