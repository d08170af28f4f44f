package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Pricing per 1K tokens, blended input/output. Good enough for the additive
// cost field; exact billing lives with the provider.
const costPer1KTokens = 0.002

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	baseURL      string
	apiKey       string
	model        string
	premiumModel string
	http         *http.Client
}

// NewOpenAIClient builds a client for the given endpoint. premiumModel may
// equal model when no premium tier is configured.
func NewOpenAIClient(baseURL, apiKey, model, premiumModel string) *OpenAIClient {
	if premiumModel == "" {
		premiumModel = model
	}
	return &OpenAIClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		premiumModel: premiumModel,
		http:         &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) Summarize(ctx context.Context, in SummaryInput, premium bool) (*SummaryResult, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	prompt := "You are an SEO consultant. Given this website analysis as JSON, reply with a JSON object " +
		`{"summary","strengths","weaknesses","primaryKeywords","missingKeywords"}. ` +
		"Summary is 3-5 sentences of prioritized advice."
	if len(in.CompetitorScores) > 0 {
		prompt += " Competitor overall scores are included; compare the site against them."
	}

	var out Summary
	usage, err := c.complete(ctx, premium, prompt, string(payload), &out)
	if err != nil {
		return nil, err
	}
	return &SummaryResult{Summary: out, Usage: usage}, nil
}

func (c *OpenAIClient) ResearchKeywords(ctx context.Context, keywords []string, industry string, premium bool) (*KeywordResult, error) {
	req := map[string]any{"keywords": keywords}
	if industry != "" {
		req["industry"] = industry
	}
	payload, _ := json.Marshal(req)
	prompt := "You are a keyword research tool. For each keyword, estimate market data. Reply with a JSON object " +
		`{"keywords":[{"keyword","searchVolume","cpc","competition","intent","difficulty","trend"}]}.`

	var out struct {
		Keywords []KeywordMetric `json:"keywords"`
	}
	usage, err := c.complete(ctx, premium, prompt, string(payload), &out)
	if err != nil {
		return nil, err
	}
	return &KeywordResult{Keywords: out.Keywords, Usage: usage}, nil
}

func (c *OpenAIClient) CheckVisibility(ctx context.Context, domain, companyName string, keywords []string, premium bool) (*VisibilityResult, error) {
	req := map[string]any{"domain": domain, "keywords": keywords}
	if companyName != "" {
		req["companyName"] = companyName
	}
	payload, _ := json.Marshal(req)
	prompt := "Estimate how visible this domain is to AI answer engines for the given keywords. Reply with a JSON object " +
		`{"score":0-100,"level":"low|medium|high","description"}.`

	var out Visibility
	usage, err := c.complete(ctx, premium, prompt, string(payload), &out)
	if err != nil {
		return nil, err
	}
	return &VisibilityResult{Visibility: out, Usage: usage}, nil
}

// complete performs one JSON-mode chat call and decodes the reply into out.
func (c *OpenAIClient) complete(ctx context.Context, premium bool, system, user string, out any) (Usage, error) {
	model := c.model
	if premium {
		model = c.premiumModel
	}
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
		Temperature:    0.2,
	})
	if err != nil {
		return Usage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Usage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Usage{}, fmt.Errorf("ai call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Usage{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Usage{}, fmt.Errorf("ai call: status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Usage{}, fmt.Errorf("ai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Usage{}, fmt.Errorf("ai response: no choices")
	}
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), out); err != nil {
		return Usage{}, fmt.Errorf("ai content: %w", err)
	}

	return Usage{
		TokensUsed: parsed.Usage.TotalTokens,
		CostUSD:    float64(parsed.Usage.TotalTokens) / 1000 * costPer1KTokens,
		Model:      model,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
