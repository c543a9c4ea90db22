package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(t *testing.T, inner string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]string{"text": inner}}}},
		},
	})
	require.NoError(t, err)
	return string(b)
}

func newTestGemini(t *testing.T, h http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return NewGemini(Config{APIKey: "k-123", Model: "test-model", BaseURL: srv.URL + "/v1beta/", Timeout: time.Second},
		WithClock(func() time.Time { return fixed }))
}

func TestParseSuccess(t *testing.T) {
	var gotReq generateRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotReq))
		_, _ = io.WriteString(w, candidate(t, `{"text":"Finish the report","priority":"high","due_date":"2025-03-14"}`))
	})

	got, err := g.Parse(context.Background(), "Finish the report today, it's urgent")
	require.NoError(t, err)
	assert.Equal(t, "Finish the report", got.Text)
	assert.Equal(t, dom.PriorityHigh, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-03-14", *got.DueDate)

	require.Len(t, gotReq.Contents, 1)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, "Today is 2025-03-14")
	assert.Equal(t, "application/json", gotReq.GenerationConfig.ResponseMimeType)
}

func TestParseFallbacks(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, candidate(t, `{"text":"","priority":"whenever","due_date":null}`))
	})
	got, err := g.Parse(context.Background(), "  call mom ")
	require.NoError(t, err)
	assert.Equal(t, "call mom", got.Text)
	assert.Equal(t, dom.PriorityMedium, got.Priority)
	assert.Nil(t, got.DueDate)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"non 2xx", http.StatusTooManyRequests, `{"error":{}}`, ErrUpstream},
		{"not json", http.StatusOK, `<html>`, ErrMalformedResponse},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrMalformedResponse},
		{"inner not json", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sure!"}]}}]}`, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := g.Parse(context.Background(), "something")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseNotConfigured(t *testing.T) {
	g := NewGemini(Config{Model: "m", BaseURL: "http://127.0.0.1:1"})
	assert.False(t, g.Configured())
	_, err := g.Parse(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseEmptyText(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Fail(t, "no request expected")
	})
	_, err := g.Parse(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestParseTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	g := NewGemini(Config{APIKey: "k", Model: "m", BaseURL: srv.URL, Timeout: time.Second})
	_, err := g.Parse(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUpstream)
}
