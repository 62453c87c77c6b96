package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mechanical_shop/internal/models"
)

const assistantSystemPrompt = `You are the shopping assistant of a mechanical tools and hardware store.
Help customers choose power tools, hand tools and measuring equipment, explain specifications,
compare products and give safe usage advice. Answer concisely in the customer's language.
If you do not know whether the store carries an item, say so instead of inventing products.`

// Assistant produces a reply to message given the previous conversation.
type Assistant interface {
	Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error)
	Provider() string
}

// NewAssistant selects the provider named in configuration.
func NewAssistant(provider, openAIKey, openAIModel, geminiKey, geminiModel string) (Assistant, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	switch provider {
	case "openai":
		return &openAIAssistant{apiKey: openAIKey, model: openAIModel, baseURL: "https://api.openai.com/v1", http: httpClient}, nil
	case "gemini":
		return &geminiAssistant{apiKey: geminiKey, model: geminiModel, baseURL: "https://generativelanguage.googleapis.com/v1beta", http: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", provider)
	}
}

type openAIAssistant struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func (a *openAIAssistant) Provider() string { return "openai" }

func (a *openAIAssistant) Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("openai api key not configured")
	}

	messages := []map[string]string{{"role": "system", "content": assistantSystemPrompt}}
	for _, m := range history {
		role := "assistant"
		if m.IsUser {
			role = "user"
		}
		messages = append(messages, map[string]string{"role": role, "content": m.Message})
	}
	messages = append(messages, map[string]string{"role": "user", "content": message})

	requestBody := map[string]interface{}{
		"model":       a.model,
		"messages":    messages,
		"max_tokens":  500,
		"temperature": 0.7,
	}

	var openAIResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}
	if err := postJSON(ctx, a.http, a.baseURL+"/chat/completions", headers, requestBody, &openAIResponse); err != nil {
		return "", err
	}
	if openAIResponse.Error != nil {
		return "", fmt.Errorf("openai: %s", openAIResponse.Error.Message)
	}
	if len(openAIResponse.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(openAIResponse.Choices[0].Message.Content), nil
}

type geminiAssistant struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func (a *geminiAssistant) Provider() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (a *geminiAssistant) Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		role := "model"
		if m.IsUser {
			role = "user"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Message}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: message}}})

	requestBody := map[string]interface{}{
		"systemInstruction": geminiContent{Parts: []geminiPart{{Text: assistantSystemPrompt}}},
		"contents":          contents,
	}

	var geminiResponse struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	if err := postJSON(ctx, a.http, url, nil, requestBody, &geminiResponse); err != nil {
		return "", err
	}
	if geminiResponse.Error != nil {
		return "", fmt.Errorf("gemini: %s", geminiResponse.Error.Message)
	}
	if len(geminiResponse.Candidates) == 0 || len(geminiResponse.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	var b strings.Builder
	for _, p := range geminiResponse.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, dest interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
