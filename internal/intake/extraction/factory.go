package extraction

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/leadflow/leadflow-backend/pkg/config"
)

// NewFromConfig builds a client for the configured recognition provider
func NewFromConfig(cfg config.RecognitionConfig) (*Client, error) {
	var rec Recognizer
	switch cfg.Provider {
	case config.ProviderAnthropic:
		rec = NewAnthropicRecognizer(AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
		})
	case config.ProviderVision:
		if cfg.VisionURL == "" {
			return nil, fmt.Errorf("vision provider requires a vision URL")
		}
		rec = NewVisionServiceRecognizer(cfg.VisionURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown recognition provider %q", cfg.Provider)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return NewClient(NewRegistry(rec), limiter)
}
