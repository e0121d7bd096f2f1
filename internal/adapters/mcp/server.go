// Package mcpadapter exposes the retrieval and catalog usecases as Model
// Context Protocol tools, so agent runtimes can query the document corpus
// over stdio.
package mcpadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dmarchuk/rag-document-assistant/internal/core/ports"
)

const Version = "0.1.0"

type Server struct {
	query   ports.QueryService
	catalog ports.DocumentCatalog
	server  *mcp.Server
}

func NewServer(query ports.QueryService, catalog ports.DocumentCatalog) (*Server, error) {
	if query == nil || catalog == nil {
		return nil, errors.New("mcp server: query and catalog are required")
	}

	impl := &mcp.Implementation{
		Name:    "rag-document-assistant",
		Version: Version,
	}

	s := &Server{
		query:   query,
		catalog: catalog,
		server:  mcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves the tools over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
