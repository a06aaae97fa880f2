package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type OpenAITranslator struct {
	client *openai.Client
	model  string
}

func NewOpenAITranslator(apiKey, model string) *OpenAITranslator {
	return NewOpenAITranslatorWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAITranslatorWithConfig allows pointing the client at another base URL
func NewOpenAITranslatorWithConfig(cfg openai.ClientConfig, model string) *OpenAITranslator {
	return &OpenAITranslator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (t *OpenAITranslator) Name() string { return "openai" }

func (t *OpenAITranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !ShouldTranslate(text, sourceLang, targetLang) {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     t.model,
		MaxTokens: 1000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(sourceLang, targetLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		slog.Error("Failed to call OpenAI API", "error", err)
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no translation returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func systemPrompt(sourceLang, targetLang string) string {
	source := "the detected source language"
	if !strings.EqualFold(sourceLang, "auto") {
		source = fmt.Sprintf("language code %q", sourceLang)
	}
	return fmt.Sprintf(
		"You translate Slack messages from %s into language code %q. "+
			"Reply with the translation only. Keep Slack formatting such as <@U123>, <#C123|name>, emoji codes and links unchanged.",
		source, targetLang)
}
