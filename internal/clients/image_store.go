package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ImageStoreClient talks to the external object storage that hosts scan
// photos.
type ImageStoreClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewImageStoreClient creates a new image store client
func NewImageStoreClient(baseURL, apiKey string) *ImageStoreClient {
	return &ImageStoreClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ImageUpload is the stored-image reference returned by the image store
type ImageUpload struct {
	URL       string `json:"url"`
	StorageID string `json:"publicId"`
}

type uploadRequest struct {
	Image    string `json:"image"`
	Folder   string `json:"folder,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

type uploadResponse struct {
	Success bool         `json:"success"`
	Data    *ImageUpload `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Upload stores raw image bytes and returns the hosted URL plus the storage
// identifier needed for later deletion
func (c *ImageStoreClient) Upload(ctx context.Context, image []byte, fileName string) (*ImageUpload, error) {
	body, err := json.Marshal(uploadRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Folder:   "scans",
		FileName: fileName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call image store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("image store returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var uploadResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if uploadResp.Data == nil || uploadResp.Data.URL == "" {
		return nil, fmt.Errorf("image store returned no upload reference")
	}

	return uploadResp.Data, nil
}

// Delete removes a previously uploaded image by its storage identifier
func (c *ImageStoreClient) Delete(ctx context.Context, storageID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/images/"+storageID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call image store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("image store returned status %d", resp.StatusCode)
	}
	return nil
}
