package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for lexrag resources.
	uriScheme = "lexrag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "collections",
		Name:        "collections",
		Description: "Processed collections with their document counts",
		MIMEType:    "application/json",
	}, s.handleCollectionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "collections/{collection}/documents",
		Name:        "collection-documents",
		Description: "Documents ingested into a collection",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Catalog metadata of one document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

type collectionInfo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

type documentInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Collection   string `json:"collection"`
	SourcePath   string `json:"source_path"`
	UploadDate   string `json:"upload_date"`
	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`
}

func newDocumentInfo(d domain.Document) documentInfo {
	return documentInfo{
		ID:           d.ID,
		Title:        d.Title(),
		Collection:   d.Collection,
		SourcePath:   d.SourcePath,
		UploadDate:   d.UploadDate,
		DocumentType: d.DocumentType,
		Jurisdiction: d.Jurisdiction,
	}
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleCollectionsResource returns every processed collection.
func (s *Server) handleCollectionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	names, err := s.ports.Catalog.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	infos := make([]collectionInfo, len(names))
	for i, name := range names {
		docs, err := s.ports.Catalog.Documents(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("listing documents of %s: %w", name, err)
		}
		infos[i] = collectionInfo{Name: name, Documents: len(docs)}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleDocumentsResource returns the documents of one collection.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// lexrag://collections/{collection}/documents
	collection := extractCollection(req.Params.URI)
	if collection == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Catalog.Documents(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, len(docs))
	for i := range docs {
		infos[i] = newDocumentInfo(docs[i])
	}
	return jsonResult(req.Params.URI, infos)
}

// handleDocumentResource returns the catalog entry of one document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Catalog.Document(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return jsonResult(req.Params.URI, newDocumentInfo(*doc))
}

// extractCollection extracts the name from lexrag://collections/{collection}/documents.
func extractCollection(uri string) string {
	const prefix = uriScheme + "collections/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

// extractDocumentID extracts the ID from lexrag://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
