package matching

import "sort"

const (
	// DefaultQuestionThreshold is the ratio an answer must exceed to count as a match.
	DefaultQuestionThreshold = 0.85
	// DefaultVerificationThreshold is the share of matched questions needed for ownership verification.
	DefaultVerificationThreshold = 0.85
)

// AnswerKey maps a question identifier to its canonical answer.
type AnswerKey map[string]string

// Evaluation is the outcome of scoring one set of submitted answers.
type Evaluation struct {
	// Ratios holds the similarity ratio per question in the answer key.
	Ratios map[string]float64
	// Matched is the number of questions whose ratio exceeded the question threshold.
	Matched int
	// Total is the number of questions in the answer key.
	Total int
	// Score is Matched / Total, or 0 for an empty answer key.
	Score float64
	// Verified reports whether Score reached the verification threshold.
	Verified bool
}

// Scorer evaluates submitted answers against an answer key.
//
// The zero value is not usable, use [NewScorer].
type Scorer struct {
	questionThreshold     float64
	verificationThreshold float64
}

type Option func(*Scorer)

// WithQuestionThreshold sets the ratio an individual answer must exceed.
func WithQuestionThreshold(threshold float64) Option {
	return func(s *Scorer) {
		s.questionThreshold = threshold
	}
}

// WithVerificationThreshold sets the score at or above which a claim is verified.
func WithVerificationThreshold(threshold float64) Option {
	return func(s *Scorer) {
		s.verificationThreshold = threshold
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		questionThreshold:     DefaultQuestionThreshold,
		verificationThreshold: DefaultVerificationThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate scores submitted against key.
//
// Every question in key is scored. A question missing from submitted is scored against the empty string and
// submitted answers to questions outside key are ignored. An empty key never verifies.
func (s *Scorer) Evaluate(key AnswerKey, submitted map[string]string) Evaluation {
	eval := Evaluation{
		Ratios:   make(map[string]float64, len(key)),
		Matched:  0,
		Total:    len(key),
		Score:    0,
		Verified: false,
	}
	if len(key) == 0 {
		return eval
	}

	for _, question := range questions(key) {
		ratio := Ratio(key[question], submitted[question])
		eval.Ratios[question] = ratio
		if ratio > s.questionThreshold {
			eval.Matched++
		}
	}
	eval.Score = float64(eval.Matched) / float64(eval.Total)
	eval.Verified = eval.Score >= s.verificationThreshold
	return eval
}

func questions(key AnswerKey) []string {
	qs := make([]string, 0, len(key))
	for q := range key {
		qs = append(qs, q)
	}
	sort.Strings(qs)
	return qs
}
