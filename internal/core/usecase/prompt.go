package usecase

import (
	"fmt"
	"strings"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
)

const answerInstruction = `You are a helpful assistant answering questions about uploaded documents.
Answer using ONLY the context below. Cite the sources you used by their labels.
If the context does not contain the answer, say so explicitly instead of guessing.`

// buildPrompt labels each retrieved chunk so the model can cite sources and
// the caller can trace an answer back to a file.
func buildPrompt(question string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString(answerInstruction)
	b.WriteString("\n\nContext:\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "\n[Source %d - %s]\n%s\n", i+1, chunk.Filename, chunk.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
