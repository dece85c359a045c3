// Package ai asks a vision model for ownership verification questions about a photographed item.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/models"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 30 * time.Second
	MaxTokens      = 512
)

var ErrMalformedQuestions = errors.NewSentinel("malformed questions")

const questionPrompt = `You write ownership verification questions for a lost and found service.
Look at the photo of the found item and write exactly 5 short, specific questions that only the real owner could
answer, such as colours, brands, markings, damage or contents. Never reveal the answer in the question.
Reply with a JSON array of 5 strings and nothing else.`

type Config struct {
	APIKey string
	// BaseURL overrides the OpenAI API endpoint, e.g. for a compatible gateway.
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	client *openai.Client
	model  string
	// timeout bounds each vision call.
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With("source", "ai.Client"),
	}
}

// GenerateQuestions returns exactly five ownership verification questions for the pictured item.
func (c *Client) GenerateQuestions(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mimeType := http.DetectContentType(image)
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{ //nolint:exhaustruct // this is better for readability
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: questionPrompt}, //nolint:exhaustruct // text part
						{ //nolint:exhaustruct // image part
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    dataURI,
								Detail: openai.ImageURLDetailLow,
							},
						},
					},
				},
			},
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "create chat completion", slog.String("model", c.model))
	}
	if len(completion.Choices) == 0 {
		return nil, errors.Wrap(ErrMalformedQuestions, "no choices")
	}
	content := completion.Choices[0].Message.Content
	questions, err := ParseQuestions(content)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "vision model returned malformed questions",
			slog.String("content", content), errors.SlogError(err))
		return nil, err
	}
	return questions, nil
}

// ParseQuestions decodes a model reply holding a JSON array of exactly five non-empty questions. A surrounding
// Markdown code fence is ignored.
func ParseQuestions(content string) ([]string, error) {
	var questions []string
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &questions); err != nil {
		return nil, errors.Join(ErrMalformedQuestions, errors.Wrap(err, "decode questions"))
	}
	if len(questions) != models.QuestionCount {
		return nil, errors.Wrap(ErrMalformedQuestions, "wrong question count", slog.Int("count", len(questions)))
	}
	for i, q := range questions {
		questions[i] = strings.TrimSpace(q)
		if questions[i] == "" {
			return nil, errors.Wrap(ErrMalformedQuestions, "empty question", slog.Int("index", i))
		}
	}
	return questions, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string such as "json".
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimSpace(s), "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
