package scanner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const extractionSystemPrompt = "You are a receipt extraction assistant. " +
	"Given a photo of a receipt, respond with ONLY a valid JSON object with the keys " +
	`"title", "amount", "date", "category" and "paymentMode". ` +
	"Amount is a decimal string, date is YYYY-MM-DD. " +
	"Do not include any explanatory text or markdown formatting."

// Client calls an OpenAI-compatible chat-completions endpoint to extract
// expense fields from a receipt image. Its output is untrusted and must pass
// through Sanitize before it becomes a domain record.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ScanReceipt sends the image to the model and returns its raw field guesses.
func (c *Client) ScanReceipt(ctx context.Context, image []byte, mimeType string) (ScanResult, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": extractionSystemPrompt,
			},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": "Extract the expense from this receipt."},
					{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
				},
			},
		},
		"temperature": 0.1,
		"max_tokens":  300,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return ScanResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return ScanResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ScanResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ScanResult{}, fmt.Errorf("scanner API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ScanResult{}, fmt.Errorf("parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return ScanResult{}, fmt.Errorf("no completion choices returned")
	}

	return parseScanResult(response.Choices[0].Message.Content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
