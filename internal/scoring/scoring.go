// Package scoring defines the resume scoring contract and the default keyword scorer.
package scoring

import (
	"context"
	"fmt"
	"strings"
)

const (
	MinScore = 0
	MaxScore = 100

	// KeywordWeight is the number of points each shared keyword is worth.
	KeywordWeight = 5
)

// Record is the result of scoring one resume against a job description.
type Record struct {
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// Scorer rates a resume against a job description. Every implementation keeps
// this signature so the pipeline does not care which one it gets.
type Scorer interface {
	Name() string
	Score(ctx context.Context, jobDescription, resume, name string) (*Record, error)
}

// Clamp keeps a score inside [MinScore, MaxScore].
func Clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// Keyword scores resumes by the number of distinct whitespace-separated
// tokens they share with the job description.
type Keyword struct{}

func NewKeyword() *Keyword {
	return &Keyword{}
}

func (k *Keyword) Name() string { return "keyword" }

func (k *Keyword) Score(_ context.Context, jobDescription, resume, name string) (*Record, error) {
	overlap := Overlap(Tokens(jobDescription), Tokens(resume))

	return &Record{
		Name:      name,
		Score:     Clamp(overlap * KeywordWeight),
		Reasoning: fmt.Sprintf("Temp local scoring: %d matching keywords.", overlap),
	}, nil
}

// Tokens returns the set of lowercase whitespace-separated tokens in text.
func Tokens(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// Overlap counts the tokens present in both sets.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}

	count := 0
	for token := range a {
		if _, ok := b[token]; ok {
			count++
		}
	}
	return count
}
