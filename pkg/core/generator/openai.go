package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

const defaultChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

// OpenAIGenerator 真实外部调用生成器（对外导出）
// 通过Chat Completions接口生成回复，超时由调用方context控制
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIGenerator 创建OpenAI生成器
// baseURL为空时使用官方接口地址
func NewOpenAIGenerator(apiKey, model, baseURL string, client *http.Client) *OpenAIGenerator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = defaultChatCompletionsURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate 调用外部LLM生成回复文本
// HTML正文先还原为纯文本再拼入prompt
func (g *OpenAIGenerator) Generate(ctx context.Context, e *email.Email) (string, error) {
	prompt := fmt.Sprintf(
		"Write a brief, polite reply to the following email.\n\nSubject: %s\n\n%s",
		e.Subject, ExtractPlainText(e.Body),
	)

	reqBody, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an email assistant that writes concise replies."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("构建请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用生成接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("生成接口返回异常状态 %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("解析生成结果失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("生成结果为空")
	}

	return fmt.Sprintf("Re: %s\n\n%s", e.Subject, parsed.Choices[0].Message.Content), nil
}
