package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/storage"
)

const rendererService = "visa-renderer"

// VisaImageGenerator renders a visa card through the frontend and uploads the
// PNG to the image store.
type VisaImageGenerator struct {
	renderURL  string
	secret     string
	folder     string
	store      storage.ImageStore
	httpClient *http.Client
}

// NewVisaImageGenerator renders via {frontendURL}/generate-bv and uploads into
// {rootFolder}/business-visas.
func NewVisaImageGenerator(frontendURL, secret, rootFolder string, store storage.ImageStore) *VisaImageGenerator {
	return &VisaImageGenerator{
		renderURL:  strings.TrimRight(frontendURL, "/") + "/generate-bv",
		secret:     secret,
		folder:     rootFolder + "/business-visas",
		store:      store,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate returns the public URL of the freshly rendered image.
func (g *VisaImageGenerator) Generate(ctx context.Context, img domain.VisaImage) (string, error) {
	png, err := g.render(ctx, img)
	if err != nil {
		return "", err
	}

	imageURL, err := g.store.Upload(ctx, g.folder, img.WalletAddress+".png", png)
	if err != nil {
		return "", fmt.Errorf("%w: upload visa image: %w", domain.ErrGateway, err)
	}
	return imageURL, nil
}

func (g *VisaImageGenerator) render(ctx context.Context, img domain.VisaImage) (data []byte, err error) {
	logger.ExternalServiceCall(rendererService, "render", "wallet", img.WalletAddress, "status", img.Status)
	defer func() {
		metrics.RecordGatewayCall(rendererService, "render", err)
		logger.ExternalServiceResult(rendererService, "render", err, "bytes", len(data))
	}()

	q := url.Values{}
	q.Set("name", img.Name)
	q.Set("status", string(img.Status))
	q.Set("earnings", img.Earnings)
	q.Set("secret", g.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.renderURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: render visa image: %w", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read visa image: %w", domain.ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: render visa image: %s", domain.ErrGateway, resp.Status)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no image data returned from renderer", domain.ErrGateway)
	}
	return data, nil
}
