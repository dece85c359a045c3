//go:build !cgo

package embedding

import "context"

// FastEmbed needs cgo for the ONNX runtime. Builds without cgo fall back to this stub.
type FastEmbed struct{}

func NewFastEmbed(_ Config) (*FastEmbed, error) {
	return nil, ErrNotAvailable
}

func (p *FastEmbed) Dimension() int {
	return 0
}

func (p *FastEmbed) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrNotAvailable
}

func (p *FastEmbed) Close() error {
	return nil
}
