package transform

// Package transform implements the client for the remote generative
// image service. One call carries an ordered sequence of content parts
// (reference images, the target page, the instruction text) and yields
// zero or one transformed image. The client performs no retries.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash-image"
)

// Part is one element of a request's ordered content sequence: either
// text or inline image bytes, never both.
type Part struct {
	Text      string
	Data      []byte
	MediaType string
}

// TextPart returns a text content part.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart returns an inline image content part.
func ImagePart(data []byte, mediaType string) Part {
	return Part{Data: data, MediaType: mediaType}
}

// Image is a transformed image returned by the service.
type Image struct {
	Data      []byte
	MediaType string
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transform: service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("transform: service returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Config holds client settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient overrides the default client (mainly for tests).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client submits page transformation requests.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for a Gemini-style generateContent endpoint.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Wire types for the generateContent request/response.
type generateRequest struct {
	Contents         []wireContent     `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	ImageSize string `json:"imageSize,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Submit sends one page request and returns the generated images, in
// practice zero or one. An empty slice with a nil error means the
// service produced no image; callers decide whether that is fatal.
func (c *Client) Submit(ctx context.Context, parts []Part, resolution, requestID string) ([]Image, error) {
	body := generateRequest{
		Contents: []wireContent{{Parts: encodeParts(parts)}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if resolution != "" {
		body.GenerationConfig.ImageConfig = &imageConfig{ImageSize: resolution}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("transform: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transform: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	c.logger.Debug("submitting transform request",
		"request_id", requestID, "parts", len(parts), "model", c.model)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transform: request %s: %w", requestID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transform: reading response for %s: %w", requestID, err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("transform: decoding response for %s: %w", requestID, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decoded.Error != nil {
			apiErr.Message = decoded.Error.Message
		}
		c.logger.Warn("transform request failed",
			"request_id", requestID, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}

	images := decodeImages(decoded)
	c.logger.Debug("transform request finished",
		"request_id", requestID, "images", len(images),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return images, nil
}

func encodeParts(parts []Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.Data != nil {
			out = append(out, wirePart{InlineData: &inlineData{
				MimeType: p.MediaType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		out = append(out, wirePart{Text: p.Text})
	}
	return out
}

func decodeImages(resp generateResponse) []Image {
	var images []Image
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				continue
			}
			images = append(images, Image{Data: data, MediaType: p.InlineData.MimeType})
		}
	}
	return images
}
