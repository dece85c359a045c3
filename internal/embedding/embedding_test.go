package embedding_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/myrjola/foundit/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{0, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, embedding.Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	v := embedding.Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := embedding.Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestHashEmbedder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := embedding.NewHashEmbedder(0)
	require.Equal(t, embedding.DefaultHashDimension, e.Dimension())

	vectors, err := e.Embed(ctx, []string{
		"Lost black iPhone with red case",
		"Lost black iPhone with red case",
		"iPhone, red cover, black color",
		"asdfghjkl qwerty zxcvbnm",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 4)
	for _, v := range vectors {
		require.Len(t, v, embedding.DefaultHashDimension)
		require.InDelta(t, 1, norm(v), 1e-5)
	}
	require.Equal(t, vectors[0], vectors[1])

	related := embedding.Cosine(vectors[0], vectors[2])
	unrelated := embedding.Cosine(vectors[0], vectors[3])
	require.Greater(t, related, unrelated)

	symbols, err := e.Embed(ctx, []string{"!!!", "!!!", "?", "@#$%"})
	require.NoError(t, err)
	for _, v := range symbols {
		require.InDelta(t, 1, norm(v), 1e-5, "symbol-only text embedded to a zero vector")
	}
	require.InDelta(t, 1, embedding.Cosine(symbols[0], symbols[1]), 1e-6)
	require.Less(t, embedding.Cosine(symbols[0], symbols[3]), 1.0)

	_, err = e.Embed(ctx, nil)
	require.ErrorIs(t, err, embedding.ErrEmptyInput)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Embed(cancelled, []string{"x"})
	require.ErrorIs(t, err, context.Canceled)
}

type countingEmbedder struct {
	calls int
	texts int
}

func (c *countingEmbedder) Dimension() int {
	return 2
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	next := &countingEmbedder{}
	cached := embedding.NewCachedEmbedder(next, time.Minute)
	require.Equal(t, 2, cached.Dimension())

	first, err := cached.Embed(ctx, []string{"a", "bb", "a"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 1}, {2, 1}, {1, 1}}, first)
	require.Equal(t, 1, next.calls)
	require.Equal(t, 2, next.texts, "duplicates within a batch are embedded once")

	second, err := cached.Embed(ctx, []string{"bb", "ccc"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2, 1}, {3, 1}}, second)
	require.Equal(t, 2, next.calls)
	require.Equal(t, 3, next.texts, "only the unseen text is embedded")

	_, err = cached.Embed(ctx, []string{"a", "ccc"})
	require.NoError(t, err)
	require.Equal(t, 2, next.calls, "fully cached batches skip the embedder")

	require.NoError(t, cached.Close())
}

func TestNewProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p, err := embedding.NewProvider(embedding.Config{Provider: embedding.ProviderHash})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	require.Equal(t, embedding.DefaultHashDimension, p.Dimension())
	vectors, err := p.Embed(ctx, []string{"blue umbrella"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)

	_, err = embedding.NewProvider(embedding.Config{Provider: "word2vec"})
	require.ErrorIs(t, err, embedding.ErrInvalidConfig)
}
