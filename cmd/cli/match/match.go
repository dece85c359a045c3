// Package match holds the command line tools for answer scoring, description similarity and anomaly screening.
package match

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/myrjola/foundit/internal/anomaly"
	"github.com/myrjola/foundit/internal/embedding"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/iforest"
	"github.com/myrjola/foundit/internal/logging"
	"github.com/myrjola/foundit/internal/matching"
	"github.com/spf13/cobra"
)

const defaultContamination = 0.2

var Group = &cobra.Group{
	ID:    "match",
	Title: "Matching",
}

// Commands returns fresh instances of the matching commands.
func Commands() []*cobra.Command {
	return []*cobra.Command{newRatio(), newSimilarity(), newDetect(), newDemo()}
}

func newRatio() *cobra.Command {
	return &cobra.Command{
		Use:     "ratio <expected> <given>",
		GroupID: Group.ID,
		Short:   "Score an answer against the expected answer",
		Long: `Prints the case and whitespace insensitive Ratcliff/Obershelp similarity of two answers and whether it
clears the per-question match threshold.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // expected and given
		RunE: func(cmd *cobra.Command, args []string) error {
			ratio := matching.Ratio(args[0], args[1])
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Ratio: %.4f match=%t\n",
				ratio, ratio > matching.DefaultQuestionThreshold)
			return err
		},
	}
}

func newSimilarity() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "similarity <description> <description>",
		GroupID: Group.ID,
		Short:   "Compare two descriptions by meaning",
		Args:    cobra.ExactArgs(2), //nolint:mnd // two descriptions
		RunE: func(cmd *cobra.Command, args []string) error {
			detector, closeFn, err := newDetector(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			similarity, err := detector.DescribeSimilarity(cmd.Context(), args[0], args[1])
			if err != nil {
				return errors.Wrap(err, "describe similarity")
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Description Similarity: %.4f\n", similarity)
			return err
		},
	}
	addEmbeddingFlags(cmd)
	return cmd
}

func newDetect() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "detect [file]",
		GroupID: Group.ID,
		Short:   "Flag entries that look unlike the rest",
		Long:    `Reads one entry per line from file, or stdin when no file is given, and labels each Normal or Anomaly.`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contamination, err := cmd.Flags().GetFloat64("contamination")
			if err != nil {
				return errors.Wrap(err, "contamination flag")
			}
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, openErr := os.Open(args[0])
				if openErr != nil {
					return errors.Wrap(openErr, "open entries", slog.String("file", args[0]))
				}
				defer func() {
					_ = f.Close()
				}()
				in = f
			}
			entries, err := readEntries(in)
			if err != nil {
				return err
			}
			detector, closeFn, err := newDetector(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return detect(cmd.Context(), cmd.OutOrStdout(), detector, entries, contamination)
		},
	}
	cmd.Flags().Float64("contamination", defaultContamination, "expected share of anomalies, in (0, 1)")
	addEmbeddingFlags(cmd)
	return cmd
}

// newDemo runs the matching walkthrough on a fixed set of lost and found descriptions.
func newDemo() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "demo",
		GroupID: Group.ID,
		Short:   "Walk through description matching and anomaly screening on sample reports",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			detector, closeFn, err := newDetector(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			pairs := []struct {
				label string
				a, b  string
			}{
				{"Description Similarity", "Lost black iPhone with red case", "iPhone, red cover, black color"},
				{"Seeker-Finder Score Similarity", "Seeker lost a Samsung phone in building A at 2 PM",
					"Found Samsung phone near Building A around 2"},
			}
			for _, p := range pairs {
				similarity, simErr := detector.DescribeSimilarity(ctx, p.a, p.b)
				if simErr != nil {
					return errors.Wrap(simErr, "describe similarity")
				}
				if _, err = fmt.Fprintf(out, "%s: %.4f\n", p.label, similarity); err != nil {
					return err
				}
			}
			entries := []string{
				"Lost wallet in the cafeteria at noon",
				"Lost MacBook in library at 3 PM",
				"Found shoes in gym",
				"suspicious entry zzz999@#$$@",
			}
			return detect(ctx, out, detector, entries, defaultContamination)
		},
	}
	addEmbeddingFlags(cmd)
	return cmd
}

func detect(ctx context.Context, out io.Writer, detector *anomaly.Detector, entries []string, contamination float64) error {
	results, err := detector.Detect(ctx, entries, contamination)
	if err != nil {
		return errors.Wrap(err, "detect anomalies")
	}
	for _, res := range results {
		if _, err = fmt.Fprintf(out, "%s => %s\n", res.Entry, res.Label); err != nil {
			return err
		}
	}
	return nil
}

func readEntries(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read entries")
	}
	return entries, nil
}

func addEmbeddingFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", envOr("FOUNDIT_EMBEDDING_PROVIDER", embedding.ProviderFastEmbed),
		"embedding provider, fastembed or hash")
	cmd.Flags().String("model", envOr("FOUNDIT_EMBEDDING_MODEL", embedding.DefaultModel), "FastEmbed model")
	cmd.Flags().String("cache-dir", envOr("FOUNDIT_EMBEDDING_CACHE_DIR", "local_cache"), "FastEmbed model cache")
	cmd.Flags().Uint64("seed", 0, "isolation forest seed, 0 picks a random seed")
	cmd.Flags().Int("trees", iforest.DefaultTrees, "isolation forest size")
	cmd.Flags().Bool("verbose", false, "log debug output to stderr")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newDetector(cmd *cobra.Command) (*anomaly.Detector, func(), error) {
	flags := cmd.Flags()
	provider, _ := flags.GetString("provider")
	model, _ := flags.GetString("model")
	cacheDir, _ := flags.GetString("cache-dir")
	seed, _ := flags.GetUint64("seed")
	trees, _ := flags.GetInt("trees")
	verbose, _ := flags.GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))

	embedder, err := embedding.NewProvider(embedding.Config{
		Provider: provider,
		Model:    model,
		CacheDir: cacheDir,
		CacheTTL: 0,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "new embedding provider")
	}
	closeFn := func() {
		if closeErr := embedder.Close(); closeErr != nil {
			logger.LogAttrs(cmd.Context(), slog.LevelError, "close embedding provider", errors.SlogError(closeErr))
		}
	}
	detector := anomaly.NewDetector(embedder, iforest.Config{Trees: trees, MaxSamples: 0, Seed: seed}, logger)
	return detector, closeFn, nil
}
