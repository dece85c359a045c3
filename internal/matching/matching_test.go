package matching_test

import (
	"strings"
	"testing"

	"github.com/myrjola/foundit/internal/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "black", b: "black", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "whitespace only equals empty", a: "   ", b: "", want: 1},
		{name: "one empty", a: "a", b: "", want: 0},
		{name: "nothing in common", a: "black", b: "white", want: 0},
		{name: "typo", a: "apple", b: "aple", want: 8.0 / 9.0},
		{name: "one substitution", a: "abc", b: "abd", want: 4.0 / 6.0},
		{name: "shifted", a: "abcd", b: "bcde", want: 0.75},
		{name: "case and surrounding whitespace", a: "  Apple ", b: "apple", want: 1},
		{name: "multibyte runes", a: "Köln", b: "köln", want: 1},
		{name: "multibyte runes differ", a: "kö", b: "ko", want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, matching.Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatio_symmetric(t *testing.T) {
	t.Parallel()
	pairs := [][2]string{
		{"abxcd", "cdxab"},
		{"black leather wallet", "wallet, black leather"},
		{"iPhone 13 with red case", "red case iphone"},
		{"aaab", "abaa"},
		{"", "something"},
		{strings.Repeat("ab", 150), strings.Repeat("ba", 150)},
	}
	for _, p := range pairs {
		assert.InDelta(t, matching.Ratio(p[0], p[1]), matching.Ratio(p[1], p[0]), 0, "%q vs %q", p[0], p[1])
	}
}

func TestRatio_bounds(t *testing.T) {
	t.Parallel()
	inputs := []string{"", "a", "black", "Black ", "blue backpack", "keys on a red ring", "ÅÄÖ"}
	for _, a := range inputs {
		for _, b := range inputs {
			r := matching.Ratio(a, b)
			require.GreaterOrEqual(t, r, 0.0)
			require.LessOrEqual(t, r, 1.0)
		}
		require.InDelta(t, 1.0, matching.Ratio(a, a), 0)
	}
}

func TestScorer_Evaluate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		key          matching.AnswerKey
		submitted    map[string]string
		wantMatched  int
		wantTotal    int
		wantScore    float64
		wantVerified bool
	}{
		{
			name:         "empty key",
			key:          matching.AnswerKey{},
			submitted:    map[string]string{"color": "black"},
			wantMatched:  0,
			wantTotal:    0,
			wantScore:    0,
			wantVerified: false,
		},
		{
			name:         "nil key",
			key:          nil,
			submitted:    nil,
			wantMatched:  0,
			wantTotal:    0,
			wantScore:    0,
			wantVerified: false,
		},
		{
			name:         "small typo still matches",
			key:          matching.AnswerKey{"color": "black", "brand": "apple"},
			submitted:    map[string]string{"color": "black", "brand": "aple"},
			wantMatched:  2,
			wantTotal:    2,
			wantScore:    1,
			wantVerified: true,
		},
		{
			name:         "wrong answer",
			key:          matching.AnswerKey{"color": "black"},
			submitted:    map[string]string{"color": "white"},
			wantMatched:  0,
			wantTotal:    1,
			wantScore:    0,
			wantVerified: false,
		},
		{
			name:         "missing answer counts as mismatch",
			key:          matching.AnswerKey{"color": "black", "brand": "apple"},
			submitted:    map[string]string{"color": "Black"},
			wantMatched:  1,
			wantTotal:    2,
			wantScore:    0.5,
			wantVerified: false,
		},
		{
			name: "extra answers are ignored",
			key:  matching.AnswerKey{"color": "black"},
			submitted: map[string]string{
				"color": "black",
				"size":  "large",
			},
			wantMatched:  1,
			wantTotal:    1,
			wantScore:    1,
			wantVerified: true,
		},
		{
			name: "four of five is below the verification threshold",
			key: matching.AnswerKey{
				"q1": "black", "q2": "apple", "q3": "red case", "q4": "cracked screen", "q5": "sticker on back",
			},
			submitted: map[string]string{
				"q1": "black", "q2": "apple", "q3": "red case", "q4": "cracked screen", "q5": "nothing",
			},
			wantMatched:  4,
			wantTotal:    5,
			wantScore:    0.8,
			wantVerified: false,
		},
	}
	scorer := matching.NewScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scorer.Evaluate(tt.key, tt.submitted)
			assert.Equal(t, tt.wantMatched, got.Matched)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantVerified, got.Verified)
			assert.Len(t, got.Ratios, len(tt.key))
			assert.Equal(t, got.Score >= matching.DefaultVerificationThreshold, got.Verified)
		})
	}
}

func TestScorer_options(t *testing.T) {
	t.Parallel()
	key := matching.AnswerKey{"brand": "apple", "color": "black"}
	submitted := map[string]string{"brand": "aple", "color": "black"}

	strict := matching.NewScorer(matching.WithQuestionThreshold(0.95))
	got := strict.Evaluate(key, submitted)
	require.Equal(t, 1, got.Matched)
	require.False(t, got.Verified)

	lenient := matching.NewScorer(matching.WithQuestionThreshold(0.95), matching.WithVerificationThreshold(0.5))
	require.True(t, lenient.Evaluate(key, submitted).Verified)
}
