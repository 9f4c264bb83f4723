package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
)

const underdogService = "underdog"

// UnderdogClient talks to the Underdog NFT project API.
type UnderdogClient struct {
	baseURL    string
	apiKey     string
	projectID  int
	httpClient *http.Client
	log        *slog.Logger
}

type UnderdogConfig struct {
	BaseURL   string
	APIKey    string
	ProjectID int
	Timeout   time.Duration
}

func NewUnderdogClient(cfg UnderdogConfig) *UnderdogClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &UnderdogClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithService(underdogService),
	}
}

type listNFTsResponse struct {
	Results      []domain.NFT `json:"results"`
	Page         int          `json:"page"`
	Limit        int          `json:"limit"`
	TotalPages   int          `json:"totalPages"`
	TotalResults int          `json:"totalResults"`
}

// CountMinted returns the number of NFTs minted in the project. With a page
// size of one, totalPages equals the number of NFTs.
func (c *UnderdogClient) CountMinted(ctx context.Context) (int, error) {
	var out listNFTsResponse
	if err := c.do(ctx, "count", http.MethodGet, c.nftsPath()+"?limit=1", nil, &out); err != nil {
		return 0, err
	}
	if out.TotalPages < 0 {
		return 0, fmt.Errorf("%w: negative minted count %d", domain.ErrGateway, out.TotalPages)
	}
	return out.TotalPages, nil
}

func (c *UnderdogClient) Mint(ctx context.Context, req domain.MintRequest) (*domain.NFT, error) {
	var out domain.NFT
	if err := c.do(ctx, "mint", http.MethodPost, c.nftsPath(), req, &out); err != nil {
		return nil, err
	}
	if out.MintAddress == "" {
		return nil, fmt.Errorf("%w: mint response has no mint address", domain.ErrGateway)
	}
	return &out, nil
}

func (c *UnderdogClient) Get(ctx context.Context, nftID int64) (*domain.NFT, error) {
	var out domain.NFT
	if err := c.do(ctx, "get", http.MethodGet, fmt.Sprintf("%s/%d", c.nftsPath(), nftID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *UnderdogClient) Update(ctx context.Context, nftID int64, update domain.NFTUpdate) (*domain.NFT, error) {
	var out domain.NFT
	if err := c.do(ctx, "update", http.MethodPatch, fmt.Sprintf("%s/%d", c.nftsPath(), nftID), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *UnderdogClient) nftsPath() string {
	return fmt.Sprintf("/v2/projects/n/%d/nfts", c.projectID)
}

func (c *UnderdogClient) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	logger.ExternalServiceCall(underdogService, op, "method", method, "path", path)
	defer func() {
		metrics.RecordGatewayCall(underdogService, op, err)
		logger.ExternalServiceResult(underdogService, op, err)
	}()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: underdog %s: %w", domain.ErrGateway, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read underdog response: %w", domain.ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("Underdog rejected request", "operation", op, "status", resp.StatusCode, "request_id", logger.RequestID(ctx))
		return fmt.Errorf("%w: underdog %s failed: %s - %s", domain.ErrGateway, op, resp.Status, truncate(respBody, 512))
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: underdog %s returned an empty body", domain.ErrGateway, op)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: decode underdog %s response: %w", domain.ErrGateway, op, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
