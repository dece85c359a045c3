// Package anomaly flags free-text entries that do not look like the rest of their batch and compares texts by
// meaning.
package anomaly

import (
	"context"
	"log/slog"

	"github.com/myrjola/foundit/internal/embedding"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/iforest"
)

var (
	ErrInvalidContamination = errors.NewSentinel("contamination must be strictly between 0 and 1")
	ErrUpstream             = errors.NewSentinel("embedding provider failed")
)

type Label string

const (
	Normal  Label = "Normal"
	Anomaly Label = "Anomaly"
)

// Result labels one entry of a batch.
type Result struct {
	Entry string `json:"entry"`
	Label Label  `json:"label"`
	// Score is the isolation forest anomaly score in (0, 1]. Higher is more anomalous.
	Score float64 `json:"score"`
}

// Detector embeds text batches and scores them with an isolation forest fitted on the batch itself.
type Detector struct {
	embedder embedding.Embedder
	forest   iforest.Config
	logger   *slog.Logger
}

func NewDetector(embedder embedding.Embedder, forest iforest.Config, logger *slog.Logger) *Detector {
	return &Detector{
		embedder: embedder,
		forest:   forest,
		logger:   logger.With("source", "Detector"),
	}
}

// Detect labels every entry as Normal or Anomaly relative to the rest of the batch.
//
// Results keep the input order. contamination is the expected share of anomalies. An empty batch yields no
// results. Batches too small or too uniform to separate are labelled without failing.
func (d *Detector) Detect(ctx context.Context, entries []string, contamination float64) ([]Result, error) {
	if contamination <= 0 || contamination >= 1 {
		return nil, errors.Wrap(ErrInvalidContamination, "validate contamination",
			slog.Float64("contamination", contamination))
	}
	if len(entries) == 0 {
		return []Result{}, nil
	}

	vectors, err := d.embedder.Embed(ctx, entries)
	if err != nil {
		return nil, errors.Join(ErrUpstream, errors.Wrap(err, "embed entries", slog.Int("entries", len(entries))))
	}
	if len(vectors) != len(entries) {
		return nil, errors.Wrap(ErrUpstream, "unexpected number of vectors", slog.Int("vectors", len(vectors)))
	}
	samples := make([][]float64, len(vectors))
	for i, v := range vectors {
		samples[i] = embedding.Float64s(v)
	}

	forest, err := iforest.Fit(samples, d.forest)
	if err != nil {
		return nil, errors.Wrap(err, "fit isolation forest")
	}
	scores, err := forest.Scores(samples)
	if err != nil {
		return nil, errors.Wrap(err, "score entries")
	}
	threshold, err := iforest.Threshold(scores, contamination)
	if err != nil {
		return nil, errors.Wrap(err, "compute threshold")
	}

	results := make([]Result, len(entries))
	anomalies := 0
	for i, entry := range entries {
		label := Normal
		if scores[i] > threshold {
			label = Anomaly
			anomalies++
		}
		results[i] = Result{Entry: entry, Label: label, Score: scores[i]}
	}
	d.logger.LogAttrs(ctx, slog.LevelDebug, "detected anomalies",
		slog.Int("entries", len(entries)), slog.Int("anomalies", anomalies),
		slog.Float64("threshold", threshold))
	return results, nil
}

// DescribeSimilarity returns the cosine similarity of the embeddings of a and b in [-1, 1].
func (d *Detector) DescribeSimilarity(ctx context.Context, a, b string) (float64, error) {
	vectors, err := d.embedder.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, errors.Join(ErrUpstream, errors.Wrap(err, "embed descriptions"))
	}
	if len(vectors) != 2 { //nolint:mnd // a and b
		return 0, errors.Wrap(ErrUpstream, "unexpected number of vectors", slog.Int("vectors", len(vectors)))
	}
	return embedding.Cosine(vectors[0], vectors[1]), nil
}
