package mcpadapter

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryInput is the input schema for the query_documents tool.
type QueryInput struct {
	Question string `json:"question" jsonschema:"the natural-language question to answer from the uploaded documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default 3, max 20)"`
}

// QueryOutput is the output schema for the query_documents tool.
type QueryOutput struct {
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Sources    []SourceOutput `json:"sources"`
	LatencyMS  int64          `json:"latency_ms"`
}

type SourceOutput struct {
	Filename  string  `json:"filename"`
	ChunkText string  `json:"chunk_text"`
	Relevance float64 `json:"relevance"`
}

// ListOutput is the output schema for the list_documents tool.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

type DocumentOutput struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	UploadTime string `json:"upload_time"`
}

// DeleteInput is the input schema for the delete_document tool.
type DeleteInput struct {
	DocumentID string `json:"document_id" jsonschema:"id of the document to delete"`
}

// DeleteOutput is the output schema for the delete_document tool.
type DeleteOutput struct {
	DocumentID    string `json:"document_id"`
	RemovedChunks int    `json:"removed_chunks"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question using the uploaded documents, with cited sources",
	}, s.handleQuery)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents currently available for querying",
	}, s.handleList)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its indexed chunks",
	}, s.handleDelete)
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	answer, err := s.query.Query(ctx, input.Question, input.TopK)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:     answer.Text,
		Confidence: answer.Confidence,
		Sources:    make([]SourceOutput, len(answer.Sources)),
		LatencyMS:  answer.LatencyMS,
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			Filename:  src.Filename,
			ChunkText: src.ChunkText,
			Relevance: src.Relevance,
		}
	}
	return nil, output, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListOutput, error) {
	docs, err := s.catalog.List(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i, doc := range docs {
		output.Documents[i] = DocumentOutput{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			ChunkCount: doc.ChunkCount,
			UploadTime: doc.UploadTime.Format(time.RFC3339),
		}
	}
	return nil, output, nil
}

func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	removed, err := s.catalog.Delete(ctx, input.DocumentID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{
		DocumentID:    input.DocumentID,
		RemovedChunks: removed,
	}, nil
}
