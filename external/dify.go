package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"policydesk-backend/models"

	"go.uber.org/zap"
)

// RetrieveRequest is one semantic retrieval query
type RetrieveRequest struct {
	Query          string
	TopK           int
	ScoreThreshold float64
}

// SemanticRetriever is the semantic retrieval service contract
type SemanticRetriever interface {
	Retrieve(ctx context.Context, req RetrieveRequest) ([]models.RetrievalRecord, error)
}

// DifyRetriever queries a Dify knowledge base through its dataset retrieve API
type DifyRetriever struct {
	baseURL   string
	apiKey    string
	datasetID string
	client    *http.Client
	logger    *zap.Logger
}

// DifyOption configures a DifyRetriever
type DifyOption func(*DifyRetriever)

// DifyWithHTTPClient replaces the default HTTP client
func DifyWithHTTPClient(client *http.Client) DifyOption {
	return func(d *DifyRetriever) {
		d.client = client
	}
}

// NewDifyRetriever creates a retriever for one dataset. Calls are bounded by timeout.
func NewDifyRetriever(baseURL, apiKey, datasetID string, timeout time.Duration, logger *zap.Logger, opts ...DifyOption) *DifyRetriever {
	d := &DifyRetriever{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		datasetID: datasetID,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With(zap.String("component", "dify_retriever")),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type difyRetrieveRequest struct {
	Query          string             `json:"query"`
	RetrievalModel difyRetrievalModel `json:"retrieval_model"`
}

type difyRetrievalModel struct {
	SearchMethod          string  `json:"search_method"`
	RerankingEnable       bool    `json:"reranking_enable"`
	TopK                  int     `json:"top_k"`
	ScoreThresholdEnabled bool    `json:"score_threshold_enabled"`
	ScoreThreshold        float64 `json:"score_threshold"`
}

type difyRetrieveResponse struct {
	Records *[]struct {
		Segment struct {
			Content  string `json:"content"`
			Document struct {
				Name string `json:"name"`
			} `json:"document"`
		} `json:"segment"`
		Score float64 `json:"score"`
	} `json:"records"`
}

// Retrieve issues one retrieve request. Reranking is always disabled.
func (d *DifyRetriever) Retrieve(ctx context.Context, req RetrieveRequest) ([]models.RetrievalRecord, error) {
	body, err := json.Marshal(difyRetrieveRequest{
		Query: req.Query,
		RetrievalModel: difyRetrievalModel{
			SearchMethod:          "semantic_search",
			TopK:                  req.TopK,
			ScoreThresholdEnabled: req.ScoreThreshold > 0,
			ScoreThreshold:        req.ScoreThreshold,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/datasets/%s/retrieve", d.baseURL, d.datasetID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	start := time.Now()
	records, err := d.do(httpReq)
	if err != nil {
		ce := classify(ServiceRetrieval, err)
		d.logger.Warn("retrieval call failed",
			zap.String("query", req.Query),
			zap.String("kind", string(ce.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ce
	}
	d.logger.Debug("retrieval call completed",
		zap.String("query", req.Query),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))
	return records, nil
}

func (d *DifyRetriever) do(req *http.Request) ([]models.RetrievalRecord, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &CallError{
			Service:    ServiceRetrieval,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API error: %s", truncate(string(data), 200)),
		}
	}

	var parsed difyRetrieveResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &CallError{Service: ServiceRetrieval, Kind: KindMalformed, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if parsed.Records == nil {
		return nil, &CallError{Service: ServiceRetrieval, Kind: KindMalformed, Err: fmt.Errorf("response has no records field")}
	}

	records := make([]models.RetrievalRecord, 0, len(*parsed.Records))
	for _, r := range *parsed.Records {
		records = append(records, models.RetrievalRecord{
			Content:            r.Segment.Content,
			SourceDocumentName: r.Segment.Document.Name,
			RelevanceScore:     r.Score,
		})
	}
	return records, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
