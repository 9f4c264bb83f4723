package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
)

const (
	imageKitService   = "imagekit"
	imageKitUploadURL = "https://upload.imagekit.io/api/v1/files/upload"
	imageKitPurgeURL  = "https://api.imagekit.io/v1/files/purge"
)

// ImageKitStore uploads images to ImageKit and purges the CDN copy so the
// overwritten file is served immediately.
type ImageKitStore struct {
	privateKey string
	uploadURL  string
	purgeURL   string
	httpClient *http.Client
}

func NewImageKitStore(privateKey string) *ImageKitStore {
	return &ImageKitStore{
		privateKey: privateKey,
		uploadURL:  imageKitUploadURL,
		purgeURL:   imageKitPurgeURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type imageKitUploadResponse struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

func (s *ImageKitStore) Upload(ctx context.Context, folder, fileName string, data []byte) (url string, err error) {
	logger.ExternalServiceCall(imageKitService, "upload", "folder", folder, "file", fileName)
	defer func() {
		metrics.RecordGatewayCall(imageKitService, "upload", err)
		logger.ExternalServiceResult(imageKitService, "upload", err, "url", url)
	}()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"file":              base64.StdEncoding.EncodeToString(data),
		"fileName":          fileName,
		"folder":            folder,
		"useUniqueFileName": "false",
		"overwriteFile":     "true",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	var out imageKitUploadResponse
	if err := s.send(ctx, s.uploadURL, w.FormDataContentType(), &buf, &out); err != nil {
		return "", fmt.Errorf("imagekit upload: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("imagekit upload: response has no url")
	}

	if err := s.purge(ctx, out.URL); err != nil {
		// A stale CDN copy only delays the new image.
		logger.Warn("ImageKit cache purge failed", "url", out.URL, "error", err)
	}
	return out.URL, nil
}

func (s *ImageKitStore) purge(ctx context.Context, url string) error {
	raw, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return err
	}
	return s.send(ctx, s.purgeURL, "application/json", bytes.NewReader(raw), nil)
}

func (s *ImageKitStore) send(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(s.privateKey, "")
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: %s - %s", resp.Status, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
