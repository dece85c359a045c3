// Package reportindex keeps lost and found reports in an in-memory vector collection and suggests which reports of
// the opposite kind describe the same object.
package reportindex

import (
	"context"
	"log/slog"

	"github.com/myrjola/foundit/internal/embedding"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/models"
	"github.com/philippgille/chromem-go"
)

const (
	collectionName = "reports"
	// DefaultLimit is the number of suggestions returned when no limit is given.
	DefaultLimit = 5

	metaKind     = "kind"
	metaReporter = "reporter_id"
)

// Match is a report of the opposite kind ranked by similarity.
type Match struct {
	ReportID    string            `json:"report_id"`
	Kind        models.ReportKind `json:"kind"`
	ReporterID  string            `json:"reporter_id"`
	Description string            `json:"description"`
	Similarity  float64           `json:"similarity"`
}

// ReportLister lists stored reports, see repositories.ReportRepository.
type ReportLister interface {
	List(ctx context.Context, kind models.ReportKind) ([]models.Report, error)
}

type Index struct {
	embedder   embedding.Embedder
	collection *chromem.Collection
	logger     *slog.Logger
}

func New(embedder embedding.Embedder, logger *slog.Logger) (*Index, error) {
	embed := func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}
	collection, err := chromem.NewDB().GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, errors.Wrap(err, "create collection")
	}
	return &Index{
		embedder:   embedder,
		collection: collection,
		logger:     logger.With("source", "ReportIndex"),
	}, nil
}

// Add indexes reports. Re-adding a report replaces it.
func (idx *Index) Add(ctx context.Context, reports ...models.Report) error {
	if len(reports) == 0 {
		return nil
	}
	texts := make([]string, len(reports))
	for i, r := range reports {
		texts[i] = r.Description
	}
	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "embed reports")
	}
	if len(vectors) != len(reports) {
		return errors.Wrap(embedding.ErrEmbeddingFailed, "vector count mismatch")
	}
	docs := make([]chromem.Document, len(reports))
	for i, r := range reports {
		docs[i] = chromem.Document{
			ID: r.ID,
			Metadata: map[string]string{
				metaKind:     string(r.Kind),
				metaReporter: r.ReporterID,
			},
			Embedding: vectors[i],
			Content:   r.Description,
		}
	}
	if err = idx.collection.AddDocuments(ctx, docs, 1); err != nil {
		return errors.Wrap(err, "add documents")
	}
	idx.logger.LogAttrs(ctx, slog.LevelDebug, "reports indexed", slog.Int("count", len(docs)))
	return nil
}

// Match returns up to limit reports of the opposite kind, most similar first.
func (idx *Index) Match(ctx context.Context, report models.Report, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, idx.collection.Count())
	if limit == 0 {
		return []Match{}, nil
	}
	vectors, err := idx.embedder.Embed(ctx, []string{report.Description})
	if err != nil {
		return nil, errors.Wrap(err, "embed report", slog.String("report_id", report.ID))
	}
	if len(vectors) != 1 {
		return nil, errors.Wrap(embedding.ErrEmbeddingFailed, "vector count mismatch")
	}
	where := map[string]string{metaKind: string(report.Kind.Opposite())}
	results, err := idx.collection.QueryEmbedding(ctx, vectors[0], limit, where, nil)
	if err != nil {
		return nil, errors.Wrap(err, "query reports", slog.String("report_id", report.ID))
	}
	matches := make([]Match, 0, len(results))
	for _, res := range results {
		matches = append(matches, Match{
			ReportID:    res.ID,
			Kind:        models.ReportKind(res.Metadata[metaKind]),
			ReporterID:  res.Metadata[metaReporter],
			Description: res.Content,
			Similarity:  float64(res.Similarity),
		})
	}
	return matches, nil
}

// Rebuild indexes every stored report. It runs at startup because the collection lives in memory.
func (idx *Index) Rebuild(ctx context.Context, lister ReportLister) error {
	reports, err := lister.List(ctx, "")
	if err != nil {
		return errors.Wrap(err, "list reports")
	}
	if err = idx.Add(ctx, reports...); err != nil {
		return err
	}
	idx.logger.LogAttrs(ctx, slog.LevelInfo, "report index rebuilt", slog.Int("count", len(reports)))
	return nil
}

func (idx *Index) Count() int {
	return idx.collection.Count()
}
