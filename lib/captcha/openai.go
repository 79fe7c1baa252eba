package captcha

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultPrompt = "This image is a CAPTCHA. Reply with only the characters shown in it, " +
	"no spaces, no punctuation, no explanation."

// OpenAIConfig configures a vision chat model used as the OCR backend, any
// OpenAI compatible server works through BaseUrl.
type OpenAIConfig struct {
	ApiKey  string `json:"api_key"`
	BaseUrl string `json:"base_url"`
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
}

type OpenAIRecognizer struct {
	client *openai.Client
	model  string
	prompt string
}

func NewOpenAIRecognizer(config OpenAIConfig) (OpenAIRecognizer, error) {
	if config.ApiKey == "" {
		return OpenAIRecognizer{}, fmt.Errorf("captcha: openai recognizer requires an api key")
	}

	clientConfig := openai.DefaultConfig(config.ApiKey)
	if config.BaseUrl != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseUrl, "/")
	}
	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	prompt := config.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	return OpenAIRecognizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		prompt: prompt,
	}, nil
}

func (r OpenAIRecognizer) Recognize(ctx context.Context, img Image) (string, error) {
	res, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		MaxTokens: 16,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: r.prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURI(),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}
