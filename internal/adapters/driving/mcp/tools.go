package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// defaultRetrieveK is the retrieve tool's k when none is given.
const defaultRetrieveK = 5

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question    string   `json:"question" jsonschema:"the legal question to answer"`
	Collections []string `json:"collections,omitempty" jsonschema:"collection names to search (default all processed collections)"`
	KPerDoc     int      `json:"k_per_doc,omitempty" jsonschema:"chunks retrieved per document (default from configuration)"`
	Model       string   `json:"model,omitempty" jsonschema:"completion model override"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature override"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer      string                 `json:"answer"`
	Documents   []DocumentAnswerOutput `json:"documents"`
	Reduced     bool                   `json:"reduced"`
	MapFailures int                    `json:"map_failures"`
}

// DocumentAnswerOutput is one per-document answer of the map step.
type DocumentAnswerOutput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Answer     string `json:"answer"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question   string `json:"question" jsonschema:"the search text"`
	Collection string `json:"collection" jsonschema:"the collection to search"`
	K          int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict results to one document"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// CollectionsInput is the (empty) input schema for the collections tool.
type CollectionsInput struct{}

// CollectionsOutput is the output schema for the collections tool.
type CollectionsOutput struct {
	Collections []string `json:"collections"`
	Count       int      `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the ingested legal acts, citing each relevant document",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Hybrid keyword and semantic search over one collection",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "collections",
		Description: "List processed collections",
	}, s.handleCollections)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Ask == nil {
		return nil, AskOutput{}, ErrAskUnavailable
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	res, err := s.ports.Ask.Ask(ctx, input.Question, driving.AskOptions{
		KPerDoc:     input.KPerDoc,
		Model:       input.Model,
		Temperature: input.Temperature,
		Collections: input.Collections,
	})
	switch {
	case errors.Is(err, domain.ErrSynthesis) && res != nil:
		logger.Warn("mcp: ask: %v", err)
	case err != nil:
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:      res.Answer,
		Documents:   make([]DocumentAnswerOutput, 0, len(res.Order)),
		Reduced:     res.Reduced,
		MapFailures: res.MapFailures,
	}
	for _, id := range res.Order {
		output.Documents = append(output.Documents, DocumentAnswerOutput{
			DocumentID: id,
			Title:      s.documentTitle(ctx, id),
			Answer:     res.DocumentAnswers[id],
		})
	}
	return nil, output, nil
}

func (s *Server) documentTitle(ctx context.Context, id string) string {
	doc, err := s.ports.Catalog.Document(ctx, id)
	if err != nil || doc == nil {
		return domain.FallbackTitle(id)
	}
	return doc.Title()
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultRetrieveK
	}

	var filter *domain.Filter
	if input.DocumentID != "" {
		filter = &domain.Filter{DocumentID: input.DocumentID}
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Question, input.Collection, k, filter)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]ChunkOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		c := results[i].Chunk
		source := c.Metadata.SourceName
		if source == "" {
			source = domain.FallbackTitle(c.DocumentID)
		}
		output.Results[i] = ChunkOutput{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Source:     source,
			Page:       c.PageNumber,
			Score:      results[i].Score,
			Text:       c.Text,
		}
	}
	return nil, output, nil
}

// handleCollections handles the collections tool invocation.
func (s *Server) handleCollections(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CollectionsInput,
) (*mcp.CallToolResult, CollectionsOutput, error) {
	names, err := s.ports.Catalog.Collections(ctx)
	if err != nil {
		return nil, CollectionsOutput{}, err
	}
	if names == nil {
		names = []string{}
	}
	return nil, CollectionsOutput{Collections: names, Count: len(names)}, nil
}
