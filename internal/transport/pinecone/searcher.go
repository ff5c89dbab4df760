// Package pinecone is a REST client for the Pinecone records search API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
)

const apiVersion = "2025-01"

// Searcher queries one Pinecone serverless index over HTTP.
type Searcher struct {
	httpClient  *http.Client
	host        string
	apiKey      string
	rerankModel string
	logger      *zap.Logger
}

// Config holds the index connection settings.
type Config struct {
	APIKey      string
	Host        string // index host, e.g. https://idx-abc123.svc.aped-4627.pinecone.io
	RerankModel string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewSearcher creates a Pinecone index client.
func NewSearcher(cfg *Config) *Searcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Searcher{
		httpClient:  &http.Client{Timeout: timeout},
		host:        strings.TrimSuffix(cfg.Host, "/"),
		apiKey:      cfg.APIKey,
		rerankModel: cfg.RerankModel,
		logger:      cfg.Logger,
	}
}

type searchRequest struct {
	Query  searchQuery   `json:"query"`
	Rerank *searchRerank `json:"rerank,omitempty"`
	Fields []string      `json:"fields"`
}

type searchQuery struct {
	Inputs map[string]string `json:"inputs"`
	TopK   int               `json:"top_k"`
	Filter map[string]any    `json:"filter,omitempty"`
}

type searchRerank struct {
	Model      string   `json:"model"`
	TopN       int      `json:"top_n"`
	RankFields []string `json:"rank_fields"`
}

type searchResponse struct {
	Result struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Fields struct {
				Title     string `json:"Title"`
				Category  string `json:"Category"`
				ChunkText string `json:"chunk_text"`
			} `json:"fields"`
		} `json:"hits"`
	} `json:"result"`
}

// Search runs a text search in the given namespace. A non-empty regions list
// becomes a Category filter; rerank asks the index-side reranker to reorder
// results by chunk text. Rerank requests that exceed the reranker's input
// limit surface domain.ErrRerankInputTooLarge so callers can retry plain.
func (s *Searcher) Search(ctx context.Context, namespace, query string, regions []string, topK, rerankTopN int, rerank bool) ([]route.Hit, error) {
	body := searchRequest{
		Query: searchQuery{
			Inputs: map[string]string{"text": query},
			TopK:   topK,
		},
		Fields: []string{"Title", "Category", "chunk_text"},
	}
	if len(regions) > 0 {
		body.Query.Filter = map[string]any{"Category": map[string]any{"$in": regions}}
	}
	if rerank {
		body.Rerank = &searchRerank{
			Model:      s.rerankModel,
			TopN:       rerankTopN,
			RankFields: []string{"chunk_text"},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/records/namespaces/%s/search", s.host, namespace)
	respBody, err := s.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w: %w", err, domain.ErrCollaboratorUnavailable)
	}

	hits := make([]route.Hit, 0, len(parsed.Result.Hits))
	for _, h := range parsed.Result.Hits {
		hits = append(hits, route.NewHit(h.ID, h.Score, h.Fields.Title, h.Fields.Category, h.Fields.ChunkText))
	}
	return hits, nil
}

// Ping checks index availability via the stats endpoint.
func (s *Searcher) Ping(ctx context.Context) error {
	_, err := s.post(ctx, s.host+"/describe_index_stats", []byte("{}"))
	return err
}

func (s *Searcher) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index request failed: %w: %w", err, domain.ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read index response: %w: %w", err, domain.ErrCollaboratorUnavailable)
	}

	if resp.StatusCode >= 400 {
		return nil, classifyAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// classifyAPIError distinguishes reranker input overflows from everything
// else. The index reports them as 4xx with a message naming the rerank
// token or size limit.
func classifyAPIError(status int, body []byte) error {
	msg := apiErrorMessage(body)
	if status >= 400 && status < 500 && isRerankLimit(msg) {
		return fmt.Errorf("index error %d: %s: %w", status, msg, domain.ErrRerankInputTooLarge)
	}
	return fmt.Errorf("index error %d: %s: %w", status, msg, domain.ErrCollaboratorUnavailable)
}

func isRerankLimit(msg string) bool {
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "rerank") {
		return false
	}
	return strings.Contains(lower, "token") ||
		strings.Contains(lower, "limit") ||
		strings.Contains(lower, "too large") ||
		strings.Contains(lower, "exceed")
}

func apiErrorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(body)
}
