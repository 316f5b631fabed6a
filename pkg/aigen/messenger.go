package aigen

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SDKMessenger implements Messenger with the official Anthropic SDK.
type SDKMessenger struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewSDKMessenger creates an SDK-backed Messenger. Extra request options
// (base URL overrides and the like) are passed through to the SDK.
func NewSDKMessenger(apiKey, model string, maxTokens int64, opts ...option.RequestOption) *SDKMessenger {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &SDKMessenger{
		client:    sdk.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// CreateMessage implements Messenger.
func (m *SDKMessenger) CreateMessage(ctx context.Context, prompt string) (string, error) {
	msg, err := m.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "aigen: anthropic request")
	}

	zap.L().Info("anthropic usage",
		zap.String("model", m.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.String("stop_reason", string(msg.StopReason)),
	)

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
