package transform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func imageResponse(t *testing.T, data []byte, mediaType string) []byte {
	t.Helper()
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{"inlineData": map[string]any{
							"mimeType": mediaType,
							"data":     base64.StdEncoding.EncodeToString(data),
						}},
					},
				},
			},
		},
	}
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	return raw
}

func TestSubmit_OrderedParts(t *testing.T) {
	var got generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write(imageResponse(t, []byte{1, 2, 3}, "image/png"))
	})

	parts := []Part{
		TextPart("reference 1"),
		ImagePart([]byte{0xAA}, "image/png"),
		TextPart("target page"),
		ImagePart([]byte{0xBB}, "image/jpeg"),
		TextPart("instruction"),
	}
	images, err := client.Submit(context.Background(), parts, "2K", "req-1")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, []byte{1, 2, 3}, images[0].Data)
	assert.Equal(t, "image/png", images[0].MediaType)

	require.Len(t, got.Contents, 1)
	wire := got.Contents[0].Parts
	require.Len(t, wire, len(parts))
	assert.Equal(t, "reference 1", wire[0].Text)
	require.NotNil(t, wire[1].InlineData)
	assert.Equal(t, "image/png", wire[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xAA}), wire[1].InlineData.Data)
	assert.Equal(t, "target page", wire[2].Text)
	require.NotNil(t, wire[3].InlineData)
	assert.Equal(t, "instruction", wire[4].Text, "instruction must be the final part")

	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, []string{"IMAGE"}, got.GenerationConfig.ResponseModalities)
	require.NotNil(t, got.GenerationConfig.ImageConfig)
	assert.Equal(t, "2K", got.GenerationConfig.ImageConfig.ImageSize)
}

func TestSubmit_EmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"cannot comply"}]}}]}`))
	})

	images, err := client.Submit(context.Background(), []Part{TextPart("x")}, "", "req-2")
	require.NoError(t, err)
	assert.Empty(t, images, "text-only response is an empty result, not an error")
}

func TestSubmit_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	})

	_, err := client.Submit(context.Background(), []Part{TextPart("x")}, "", "req-3")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "quota")
}

func TestSubmit_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Submit(ctx, []Part{TextPart("x")}, "", "req-4")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmit_NoResolutionOmitsImageConfig(t *testing.T) {
	var got generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Submit(context.Background(), []Part{TextPart("x")}, "", "req-5")
	require.NoError(t, err)
	require.NotNil(t, got.GenerationConfig)
	assert.Nil(t, got.GenerationConfig.ImageConfig)
}
