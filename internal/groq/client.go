// Package groq はGroq（OpenAI互換Chat Completions API）によるプロジェクトアイデア生成を提供する。
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	defaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel    = "llama3-70b-8192"
	temperature     = 0.7
	maxTokens       = 300
)

// ErrGenerationFailed はアイデア生成に失敗したことを表す。
// 呼び出し元には詳細を返さず、原因はログに記録する。
var ErrGenerationFailed = errors.New("failed to generate idea")

// Client はGroq APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// modelとendpointが空の場合はデフォルト値を使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey, model, endpoint string) *Client {
	if model == "" {
		model = defaultModel
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      model,
		endpoint:   endpoint,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Prompt は学科と難易度からプロンプトを組み立てる。
func Prompt(branch, difficulty string) string {
	return fmt.Sprintf("Suggest a %s level final year project idea for a %s student. Keep it under 5 lines, no markdown or formatting.", difficulty, branch)
}

// Generate は学科と難易度に応じたプロジェクトアイデアを生成し、整形済みのテキストを返す。
// 失敗時はリトライせずErrGenerationFailedを返す。
func (c *Client) Generate(ctx context.Context, branch, difficulty string) (string, error) {
	if c.apiKey == "" {
		c.logger.Error("GROQ_API_KEYが設定されていません")
		return "", ErrGenerationFailed
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: Prompt(branch, difficulty)}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Groq APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", ErrGenerationFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Groq APIのレスポンス読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", ErrGenerationFailed
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Groq APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", truncateForLog(body)),
		)
		return "", ErrGenerationFailed
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Groq APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", ErrGenerationFailed
	}

	if len(result.Choices) == 0 {
		c.logger.Error("Groq APIのレスポンスにchoicesが含まれていません")
		return "", ErrGenerationFailed
	}

	text := Sanitize(result.Choices[0].Message.Content)
	if text == "" {
		c.logger.Error("Groq APIが空のアイデアを返しました")
		return "", ErrGenerationFailed
	}
	return text, nil
}

func truncateForLog(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
