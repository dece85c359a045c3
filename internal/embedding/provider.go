package embedding

import (
	"log/slog"
	"time"

	"github.com/myrjola/foundit/internal/errors"
)

const (
	ProviderFastEmbed = "fastembed"
	ProviderHash      = "hash"

	DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"
)

// Config selects and configures the embedding provider.
type Config struct {
	// Provider is ProviderFastEmbed or ProviderHash.
	Provider string
	// Model is the FastEmbed model name.
	Model string
	// CacheDir is where FastEmbed keeps downloaded model files.
	CacheDir string
	// CacheTTL is how long computed vectors are memoized. Zero keeps them until the process exits.
	CacheTTL time.Duration
}

// NewProvider constructs the configured provider wrapped in a CachedEmbedder.
func NewProvider(cfg Config) (Provider, error) {
	var next Provider
	switch cfg.Provider {
	case ProviderFastEmbed:
		if cfg.Model == "" {
			cfg.Model = DefaultModel
		}
		fe, err := NewFastEmbed(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "new fastembed provider")
		}
		next = fe
	case ProviderHash:
		next = nopCloser{NewHashEmbedder(DefaultHashDimension)}
	default:
		return nil, errors.Wrap(ErrInvalidConfig, "unknown provider", slog.String("provider", cfg.Provider))
	}
	return NewCachedEmbedder(next, cfg.CacheTTL), nil
}

type nopCloser struct {
	Embedder
}

func (nopCloser) Close() error {
	return nil
}
