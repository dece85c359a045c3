package match_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/foundit/cmd/cli/match"
	"github.com/myrjola/foundit/internal/anomaly"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "foundit-cli", SilenceErrors: true, SilenceUsage: true} //nolint:exhaustruct // test root
	root.AddGroup(match.Group)
	root.AddCommand(match.Commands()...)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRatio(t *testing.T) {
	out, err := execute(t, "", "ratio", "Red Tassel", " red tassel")
	require.NoError(t, err)
	require.Equal(t, "Ratio: 1.0000 match=true\n", out)

	out, err = execute(t, "", "ratio", "brown", "black")
	require.NoError(t, err)
	require.Contains(t, out, "match=false")

	_, err = execute(t, "", "ratio", "only one")
	require.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	out, err := execute(t, "", "similarity", "--provider", "hash", "lost wallet", "lost wallet")
	require.NoError(t, err)
	require.Equal(t, "Description Similarity: 1.0000\n", out)

	_, err = execute(t, "", "similarity", "--provider", "nope", "a", "b")
	require.Error(t, err)
}

func TestDetect(t *testing.T) {
	entries := "Lost wallet in the cafeteria at noon\n\nLost MacBook in library at 3 PM\n" +
		"Found shoes in gym\nsuspicious entry zzz999@#$$@\n"

	assertLabelled := func(t *testing.T, out string) {
		t.Helper()
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		anomalies := 0
		for _, line := range lines {
			switch {
			case strings.HasSuffix(line, " => "+string(anomaly.Anomaly)):
				anomalies++
			case strings.HasSuffix(line, " => "+string(anomaly.Normal)):
			default:
				t.Fatalf("unexpected line %q", line)
			}
		}
		require.Equal(t, 1, anomalies)
	}

	t.Run("stdin", func(t *testing.T) {
		out, err := execute(t, entries, "detect", "--provider", "hash", "--seed", "42")
		require.NoError(t, err)
		assertLabelled(t, out)
	})

	t.Run("file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "entries.txt")
		require.NoError(t, os.WriteFile(file, []byte(entries), 0o600))
		out, err := execute(t, "", "detect", "--provider", "hash", "--seed", "42", file)
		require.NoError(t, err)
		assertLabelled(t, out)
	})

	t.Run("invalid contamination", func(t *testing.T) {
		_, err := execute(t, entries, "detect", "--provider", "hash", "--contamination", "1")
		require.ErrorIs(t, err, anomaly.ErrInvalidContamination)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "", "detect", "--provider", "hash", filepath.Join(t.TempDir(), "missing.txt"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "", "demo", "--provider", "hash", "--seed", "7")
	require.NoError(t, err)
	require.Contains(t, out, "Description Similarity: ")
	require.Contains(t, out, "Seeker-Finder Score Similarity: ")
	require.Contains(t, out, "suspicious entry zzz999@#$$@ => ")
}
