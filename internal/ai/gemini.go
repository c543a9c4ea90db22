// Package ai turns free-form task text into structured fields using the
// Gemini generateContent API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"
)

var (
	ErrNotConfigured     = errors.New("ai parsing not configured")
	ErrEmptyText         = errors.New("no text provided")
	ErrUpstream          = errors.New("ai upstream request failed")
	ErrMalformedResponse = errors.New("ai response malformed")
)

const maxResponseBytes = 1 << 20

// ParsedTask is a suggestion; nothing is stored.
type ParsedTask struct {
	Text     string       `json:"text"`
	Priority dom.Priority `json:"priority"`
	DueDate  *string      `json:"due_date"`
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Gemini struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

type Option func(*Gemini)

// WithHTTPClient replaces the default client built from Config.Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gemini) { g.client = c }
}

// WithClock fixes the date used in the prompt.
func WithClock(now func() time.Time) Option {
	return func(g *Gemini) { g.now = now }
}

func NewGemini(cfg Config, opts ...Option) *Gemini {
	g := &Gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether an API key is set.
func (g *Gemini) Configured() bool { return g.cfg.APIKey != "" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var responseSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "text": {"type": "STRING"},
    "priority": {"type": "STRING", "enum": ["High", "Medium", "Low"]},
    "due_date": {"type": "STRING", "format": "date", "nullable": true}
  },
  "required": ["text", "priority"]
}`)

// Parse asks the model to extract text, priority and due date from input.
// It is never retried.
func (g *Gemini) Parse(ctx context.Context, input string) (ParsedTask, error) {
	if !g.Configured() {
		return ParsedTask{}, ErrNotConfigured
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return ParsedTask{}, ErrEmptyText
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: g.prompt(input)}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	})
	if err != nil {
		return ParsedTask{}, err
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/models/" + g.cfg.Model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ParsedTask{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return ParsedTask{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ParsedTask{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParsedTask{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return decode(raw, input)
}

func decode(raw []byte, input string) (ParsedTask, error) {
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return ParsedTask{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return ParsedTask{}, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	var out struct {
		Text     string  `json:"text"`
		Priority string  `json:"priority"`
		DueDate  *string `json:"due_date"`
	}
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &out); err != nil {
		return ParsedTask{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	parsed := ParsedTask{Text: strings.TrimSpace(out.Text)}
	if parsed.Text == "" {
		parsed.Text = input
	}
	parsed.Priority, _ = dom.ParsePriority(out.Priority)
	if out.DueDate != nil {
		if d := strings.TrimSpace(*out.DueDate); d != "" {
			parsed.DueDate = &d
		}
	}
	return parsed, nil
}

func (g *Gemini) prompt(input string) string {
	today := g.now().Format("2006-01-02")
	return fmt.Sprintf(`You extract to-do details from one natural language task description.
Today is %s.

Return a JSON object with:
  text:     the task itself, without scheduling or urgency words
  priority: one of High, Medium, Low (Medium when nothing suggests otherwise)
  due_date: YYYY-MM-DD resolved relative to today, or null when no date is given

Input: %q`, today, input)
}
