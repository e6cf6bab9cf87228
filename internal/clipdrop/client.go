package clipdrop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/config"
)

const textToImagePath = "/text-to-image/v1"

// Client synthesizes images from text prompts.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Image is the raw synthesized image.
type Image struct {
	Bytes []byte
	Mime  string
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		apiKey:  cfg.ClipdropAPIKey,
		baseURL: strings.TrimRight(cfg.ClipdropBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SynthesizeImage posts the prompt and returns the image body.
// Non-2xx responses and empty bodies are upstream errors.
func (c *Client) SynthesizeImage(ctx context.Context, prompt string) (*Image, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, apperr.Upstream("image service misconfigured", fmt.Errorf("parse base URL: %w", err))
	}
	fullURL := baseURL.JoinPath(textToImagePath).String()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, apperr.Internal("build image request", err)
	}
	if err := form.Close(); err != nil {
		return nil, apperr.Internal("build image request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, &body)
	if err != nil {
		return nil, apperr.Internal("build image request", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("image service request failed", fmt.Errorf("post clipdrop: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("image service request failed", fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("clipdrop text-to-image failed", "status", resp.StatusCode, "url", fullURL, "body", truncateBody(raw))
		}
		return nil, apperr.Upstream("image service rejected the request", fmt.Errorf("clipdrop error: status=%d", resp.StatusCode))
	}
	if len(raw) == 0 {
		return nil, apperr.Upstream("image service returned an empty image", nil)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(raw)
	}
	return &Image{Bytes: raw, Mime: mime}, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
