package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// Image encodings accepted by the hosted model
var anthropicMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AnthropicConfig configures the hosted vision model
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
	Timeout   time.Duration
}

// AnthropicRecognizer reads documents with a hosted Claude vision model.
type AnthropicRecognizer struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicRecognizer creates a recognizer for the hosted model. The SDK's
// automatic retries are disabled; every extraction is a single attempt.
func NewAnthropicRecognizer(cfg AnthropicConfig) *AnthropicRecognizer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicRecognizer{
		client:    sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (r *AnthropicRecognizer) Name() string { return "anthropic" }

func (r *AnthropicRecognizer) Supports(docType domain.DocumentType) bool {
	_, ok := fieldHints[docType]
	return ok
}

func (r *AnthropicRecognizer) Recognize(ctx context.Context, req Request) ([]byte, error) {
	mediaType := req.Image.MIMEType()
	if !anthropicMediaTypes[mediaType] {
		return nil, fmt.Errorf("anthropic: unsupported image type %q", mediaType)
	}

	msg, err := r.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(r.model),
		MaxTokens: r.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(mediaType, req.Image.Base64()),
				sdk.NewTextBlock(req.Instruction),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: response has no text (stop reason %s)", msg.StopReason)
	}
	return []byte(text.String()), nil
}
