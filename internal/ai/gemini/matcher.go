package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Matcher scores resumes with a Gemini model. It satisfies scoring.Scorer.
type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	systemInstruction = "You are a recruiting assistant that rates how well a resume matches a job description. " +
		"Base every judgement only on the provided text and answer with a single JSON object."

	emptyReasoning = "Model scoring: no reasoning provided."
)

var errMissingScore = errors.New("gemini response has no score")

var _ scoring.Scorer = (*Matcher)(nil)

type assessment struct {
	Score      *float64 `mapstructure:"score"`
	MatchScore *float64 `mapstructure:"match_score"`
	Reasoning  string   `mapstructure:"reasoning"`
	Reason     string   `mapstructure:"reason"`
}

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) Name() string { return "gemini" }

func (m *Matcher) Score(ctx context.Context, jobDescription, resume, name string) (*scoring.Record, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, fmt.Errorf("job description text is required")
	}

	// Extracted PDF text can carry broken byte sequences that the API refuses.
	prompt := buildPrompt(
		strings.ToValidUTF8(jobDescription, "�"),
		strings.ToValidUTF8(resume, "�"),
		name,
	)

	m.logger.Debug("gemini generate content request",
		zap.String("resume", name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String("resume", name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	score, reasoning, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	return &scoring.Record{
		Name:      name,
		Score:     score,
		Reasoning: reasoning,
	}, nil
}

func buildPrompt(jobDescription, resume, name string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{JOB_DESCRIPTION}}\n\nResume ({{RESUME_NAME}}):\n{{RESUME_TEXT}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription),
		"{{RESUME_NAME}}", strings.TrimSpace(name),
		"{{RESUME_TEXT}}", strings.TrimSpace(resume),
	)
	return replacer.Replace(template)
}

func parseResponse(raw string) (int, string, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return 0, "", fmt.Errorf("parse gemini response: %w", err)
	}

	var result assessment
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &result,
	})
	if err != nil {
		return 0, "", err
	}
	if err := decoder.Decode(data); err != nil {
		return 0, "", fmt.Errorf("decode gemini response: %w", err)
	}

	value := result.Score
	if value == nil {
		value = result.MatchScore
	}
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return 0, "", errMissingScore
	}

	reasoning := strings.TrimSpace(result.Reasoning)
	if reasoning == "" {
		reasoning = strings.TrimSpace(result.Reason)
	}
	if reasoning == "" {
		reasoning = emptyReasoning
	}

	// Clamp before converting: out-of-range floats do not convert to int reliably.
	score := math.Max(scoring.MinScore, math.Min(scoring.MaxScore, math.Round(*value)))

	return int(score), reasoning, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
