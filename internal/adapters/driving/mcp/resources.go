package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
)

// uriScheme is the custom URI scheme for sercha-synth resources.
const uriScheme = "sercha-synth://"

// sourceInfo is the resource form of a source.
type sourceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	WordCount *int   `json:"word_count,omitempty"`
}

func toSourceInfo(src *domain.Source) sourceInfo {
	return sourceInfo{
		ID:        src.ID,
		Name:      src.Name,
		Type:      src.FileType(),
		Kind:      string(src.EffectiveKind()),
		Status:    string(src.Status),
		WordCount: src.WordCount,
	}
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "The user's documents and knowledge bases",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}",
		Name:        "source",
		Description: "One document or knowledge base",
		MIMEType:    "application/json",
	}, s.handleSourceResource)
}

// handleSourcesResource returns the owner's sources.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sources == nil {
		return jsonResource(req.Params.URI, []sourceInfo{})
	}

	sources, err := s.ports.Sources.List(ctx, s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]sourceInfo, len(sources))
	for i := range sources {
		infos[i] = toSourceInfo(&sources[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleSourceResource returns one source of the owner.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sources == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractSourceID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	sources, err := s.ports.Sources.List(ctx, s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	for i := range sources {
		if sources[i].ID == id {
			return jsonResource(req.Params.URI, toSourceInfo(&sources[i]))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceID extracts the source ID from a URI like sercha-synth://sources/{sourceId}.
func extractSourceID(uri string) string {
	const prefix = uriScheme + "sources/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
