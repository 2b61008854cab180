package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// openAIProvider calls the OpenAI chat completions endpoint directly.
// Serves the low and mid tiers; only the model name differs.
type openAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	multiplier int
	httpClient *http.Client
}

func newOpenAIProvider(cfg Config, model string, multiplier int) *openAIProvider {
	return &openAIProvider{
		apiKey:     cfg.OpenAIAPIKey,
		baseURL:    cfg.OpenAIBaseURL,
		model:      model,
		multiplier: multiplier,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *openAIProvider) Name() string        { return "openai/" + p.model }
func (p *openAIProvider) CostMultiplier() int { return p.multiplier }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *openAIProvider) Invoke(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.8,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("OpenAI request marshal failed: %v", err)
		return "", ErrRequestFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		log.Printf("OpenAI request build failed: %v", err)
		return "", ErrRequestFailed
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("OpenAI call failed (model %s): %v", p.model, err)
		return "", ErrRequestFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("OpenAI response read failed (model %s): %v", p.model, err)
		return "", ErrRequestFailed
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("OpenAI response unmarshal failed (model %s, status %d): %v", p.model, resp.StatusCode, err)
		return "", ErrRequestFailed
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			log.Printf("OpenAI API error (model %s, status %d): %s: %s", p.model, resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		} else {
			log.Printf("OpenAI API error (model %s): status %d", p.model, resp.StatusCode)
		}
		return "", ErrRequestFailed
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		log.Printf("OpenAI response had no content (model %s)", p.model)
		return "", ErrRequestFailed
	}

	return parsed.Choices[0].Message.Content, nil
}
