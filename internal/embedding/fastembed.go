//go:build cgo

package embedding

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
	"github.com/myrjola/foundit/internal/errors"
)

const (
	defaultMaxLength = 256
	embedBatchSize   = 32
)

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"fast-all-MiniLM-L6-v2":                  fastembed.AllMiniLML6V2,
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"fast-bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"fast-bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
}

var fastEmbedDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.AllMiniLML6V2: 384,
	fastembed.BGESmallENV15: 384,
	fastembed.BGEBaseENV15:  768,
}

// FastEmbed runs a sentence embedding model locally on the ONNX runtime.
//
// The runtime library is located through the ONNX_PATH environment variable and model files are downloaded to
// the cache directory on first use.
type FastEmbed struct {
	model     *fastembed.FlagEmbedding
	dimension int
	mu        sync.RWMutex
}

func NewFastEmbed(cfg Config) (*FastEmbed, error) {
	model, ok := fastEmbedModels[cfg.Model]
	if !ok {
		return nil, errors.Wrap(ErrInvalidConfig, "unsupported model", slog.String("model", cfg.Model))
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}
	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{ //nolint:exhaustruct // defaults are fine
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            defaultMaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize fastembed", slog.String("model", cfg.Model))
	}
	return &FastEmbed{
		model:     flagEmbed,
		dimension: fastEmbedDimensions[model],
	}, nil
}

func (p *FastEmbed) Dimension() int {
	return p.dimension
}

func (p *FastEmbed) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors are returned as is
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	embeddings, err := p.model.Embed(texts, embedBatchSize)
	if err != nil {
		return nil, errors.Join(ErrEmbeddingFailed, errors.Wrap(err, "fastembed embed"))
	}
	out := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		out[i] = Normalize([]float32(e))
	}
	return out, nil
}

func (p *FastEmbed) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil
	}
	err := p.model.Destroy()
	p.model = nil
	return errors.Wrap(err, "destroy fastembed model")
}
