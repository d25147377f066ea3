package creative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
)

// Remix is the generation prompt derived from a caption.
type Remix struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// StatusError is a non-2xx gateway response.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Client talks to the creative gateway over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the gateway at baseURL. Per-step deadlines come from
// the caller's context; the http.Client timeout is only a backstop.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type captionReq struct {
	ImageURL string `json:"imageUrl"`
}

type captionResp struct {
	Description   string `json:"description"`
	StyleAnalysis string `json:"styleAnalysis"`
}

func (c *Client) Caption(ctx context.Context, humanImageURL string) (*models.Caption, error) {
	log := logger.FromContext(ctx).WithPrefix("creative").WithField("image", humanImageURL)
	log.Debug("requesting caption")

	var out captionResp
	if _, err := c.post(ctx, log, "/v1/caption", captionReq{ImageURL: humanImageURL}, &out); err != nil {
		return nil, err
	}
	if out.Description == "" {
		return nil, fmt.Errorf("caption response has no description")
	}
	return &models.Caption{Description: out.Description, StyleAnalysis: out.StyleAnalysis}, nil
}

type remixReq struct {
	Description   string `json:"description"`
	StyleAnalysis string `json:"styleAnalysis"`
	Notes         string `json:"notes,omitempty"`
}

func (c *Client) Remix(ctx context.Context, caption models.Caption, notes string) (*Remix, error) {
	log := logger.FromContext(ctx).WithPrefix("creative")
	log.Debug("requesting prompt remix")

	var out Remix
	if _, err := c.post(ctx, log, "/v1/remix", remixReq{
		Description:   caption.Description,
		StyleAnalysis: caption.StyleAnalysis,
		Notes:         notes,
	}, &out); err != nil {
		return nil, err
	}
	if out.Prompt == "" {
		return nil, fmt.Errorf("remix response has no prompt")
	}
	return &out, nil
}

type generateReq struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type generateResp struct {
	ImageURL string `json:"imageUrl"`
}

func (c *Client) GenerateImage(ctx context.Context, prompt string, dims models.Dimensions) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("creative")
	log.Debug("requesting image generation: %dx%d", dims.Width, dims.Height)

	var out generateResp
	status, err := c.post(ctx, log, "/v1/images", generateReq{Prompt: prompt, Width: dims.Width, Height: dims.Height}, &out)
	if status == http.StatusTooManyRequests {
		log.Warn("image generation quota exhausted")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if out.ImageURL == "" {
		log.Warn("gateway returned no image")
	}
	return out.ImageURL, nil
}

// post sends body as JSON and decodes a 2xx response into out. The status code
// is returned even when err is set.
func (c *Client) post(ctx context.Context, log *logger.Logger, endpoint string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Error("failed to create request: %v", err)
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("request to %s failed: %v", endpoint, err)
		return 0, err
	}
	defer resp.Body.Close()

	log.Debug("%s response received in %v, status=%d", endpoint, time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode != http.StatusTooManyRequests {
			log.Error("%s request failed: status=%d, body=%s", endpoint, resp.StatusCode, string(raw))
		}
		return resp.StatusCode, &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Error("failed to decode %s response: %v", endpoint, err)
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}
