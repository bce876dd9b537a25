// Package screening runs one job description against a batch of resumes and
// collects the ranked outcome.
package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/documents"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/ranking"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/utils"
)

const jobDescriptionPreviewLength = 500

// ErrMissingInput is returned when the job description or every resume is absent.
var ErrMissingInput = errors.New("missing input")

// Policy decides what happens to the batch when a single resume fails.
type Policy int

const (
	// PolicySkip records the failure and keeps screening the remaining resumes.
	PolicySkip Policy = iota
	// PolicyAbort stops the run on the first failed resume.
	PolicyAbort
)

func (p Policy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "skip"
}

// ParsePolicy maps the configuration value to a Policy. An empty value means skip.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return PolicySkip, nil
	case "abort":
		return PolicyAbort, nil
	default:
		return PolicySkip, fmt.Errorf("unknown screening policy %q", s)
	}
}

// State is the outcome of a single resume.
type State string

const (
	StateScored State = "scored"
	StateFailed State = "failed"
)

// DocumentStatus describes what happened to one resume during a run.
type DocumentStatus struct {
	Name  string
	Type  documents.MediaType
	State State
	Err   error
}

// Step summarizes a batch: how many resumes came in, how many failed and how many were ranked.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Result is the outcome of a completed run.
type Result struct {
	RunID                 string
	Ranked                *ranking.ResultSet
	Statuses              []DocumentStatus
	Summary               Step
	JobDescriptionPreview string
}

// Failed returns the statuses of resumes that could not be scored.
func (r *Result) Failed() []DocumentStatus {
	if r == nil {
		return nil
	}

	failed := make([]DocumentStatus, 0)
	for _, status := range r.Statuses {
		if status.State == StateFailed {
			failed = append(failed, status)
		}
	}
	return failed
}

// ExtractFunc turns a document into plain text.
type ExtractFunc func(ctx context.Context, doc documents.Document) (string, error)

// Pipeline wires extraction, scoring and ranking together.
// A zero Pipeline extracts with the default registry and scores by keyword overlap.
type Pipeline struct {
	Extract ExtractFunc
	Scorer  scoring.Scorer
	Policy  Policy
	// Timeout bounds extraction and scoring of a single resume. Zero disables it.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Run screens the resumes in submission order and ranks the ones that could be scored.
func (p *Pipeline) Run(ctx context.Context, jd documents.Document, resumes []documents.Document) (*Result, error) {
	if jd.IsZero() {
		return nil, fmt.Errorf("%w: job description is required", ErrMissingInput)
	}
	if len(resumes) == 0 {
		return nil, fmt.Errorf("%w: at least one resume is required", ErrMissingInput)
	}

	extract := p.Extract
	if extract == nil {
		extract = documents.Extract
	}

	scorer := p.Scorer
	if scorer == nil {
		scorer = scoring.NewKeyword()
	}

	runID := uuid.NewString()
	log := logger.WithFields(p.Logger,
		zap.String(logger.FieldRunID, runID),
		zap.String(logger.FieldScorer, scorer.Name()),
	)

	jdText, err := extract(ctx, jd)
	if err != nil {
		return nil, fmt.Errorf("job description: %w", err)
	}

	preview := utils.TruncateForLog(jdText, jobDescriptionPreviewLength)
	log.Info("job description loaded",
		append(logger.DocumentFields(jd.Name, jd.Type.String()), zap.String("preview", preview))...,
	)

	records := make([]scoring.Record, 0, len(resumes))
	statuses := make([]DocumentStatus, 0, len(resumes))

	for i, resume := range resumes {
		docLog := logger.WithFields(log, logger.DocumentFields(resume.Name, resume.Type.String())...)
		docLog.Info("screening resume", zap.Int("index", i+1), zap.Int("total", len(resumes)))

		record, err := p.screen(ctx, extract, scorer, jdText, resume)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("screening interrupted at %q: %w", resume.Name, ctx.Err())
			}
			if p.Policy == PolicyAbort {
				return nil, fmt.Errorf("resume %q: %w", resume.Name, err)
			}

			docLog.Warn("resume skipped", zap.Error(err))
			statuses = append(statuses, DocumentStatus{Name: resume.Name, Type: resume.Type, State: StateFailed, Err: err})
			continue
		}

		docLog.Debug("resume scored", zap.Int("score", record.Score), zap.String("reasoning", record.Reasoning))
		records = append(records, *record)
		statuses = append(statuses, DocumentStatus{Name: resume.Name, Type: resume.Type, State: StateScored})
	}

	summary := Step{Initial: len(resumes), Dropped: len(resumes) - len(records), Left: len(records)}
	log.Info("screening step",
		zap.String("policy", p.Policy.String()),
		zap.Int("initial", summary.Initial),
		zap.Int("dropped", summary.Dropped),
		zap.Int("left", summary.Left),
	)

	return &Result{
		RunID:                 runID,
		Ranked:                ranking.Rank(records),
		Statuses:              statuses,
		Summary:               summary,
		JobDescriptionPreview: preview,
	}, nil
}

func (p *Pipeline) screen(ctx context.Context, extract ExtractFunc, scorer scoring.Scorer, jdText string, resume documents.Document) (*scoring.Record, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	text, err := extract(ctx, resume)
	if err != nil {
		return nil, err
	}

	record, err := scorer.Score(ctx, jdText, text, resume.Name)
	if err != nil {
		return nil, fmt.Errorf("%s scorer: %w", scorer.Name(), err)
	}
	if record == nil {
		return nil, fmt.Errorf("%s scorer returned no record", scorer.Name())
	}

	record.Name = resume.Name
	record.Score = scoring.Clamp(record.Score)

	return record, nil
}
