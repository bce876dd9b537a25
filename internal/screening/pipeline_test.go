package screening

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-screener/internal/documents"
	"github.com/spigell/resume-screener/internal/scoring"
)

func textDoc(name, body string) documents.Document {
	return documents.Document{Name: name, Type: documents.Text, Data: []byte(body)}
}

type fakeScorer struct {
	mu     sync.Mutex
	fail   map[string]error
	block  bool
	called []string
}

func (f *fakeScorer) Name() string { return "fake" }

func (f *fakeScorer) Score(ctx context.Context, jobDescription, resume, name string) (*scoring.Record, error) {
	f.mu.Lock()
	f.called = append(f.called, name)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return &scoring.Record{Name: name, Score: len(resume) * 50, Reasoning: "fake"}, nil
}

func TestRunRanksMatchingResumeFirst(t *testing.T) {
	p := &Pipeline{Logger: zap.NewNop()}

	result, err := p.Run(context.Background(),
		textDoc("jd.txt", "Python AWS Docker"),
		[]documents.Document{
			textDoc("b.txt", "Java Spring"),
			textDoc("a.txt", "python aws docker kubernetes"),
		},
	)
	require.NoError(t, err)

	records := result.Ranked.Records()
	require.Len(t, records, 2)
	assert.Equal(t, scoring.Record{Name: "a.txt", Score: 15, Reasoning: "Temp local scoring: 3 matching keywords."}, records[0])
	assert.Equal(t, scoring.Record{Name: "b.txt", Score: 0, Reasoning: "Temp local scoring: 0 matching keywords."}, records[1])

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "Python AWS Docker", result.JobDescriptionPreview)
	assert.Equal(t, Step{Initial: 2, Dropped: 0, Left: 2}, result.Summary)
	assert.Empty(t, result.Failed())
	assert.Equal(t, []DocumentStatus{
		{Name: "b.txt", Type: documents.Text, State: StateScored},
		{Name: "a.txt", Type: documents.Text, State: StateScored},
	}, result.Statuses)
}

func TestRunRanksRelevantResumeAboveUnrelated(t *testing.T) {
	jd := textDoc("jd.txt", "Python backend engineer with AWS experience")
	a := textDoc("a.txt", "Experienced Python developer, AWS certified")
	b := textDoc("b.txt", "Graphic designer, Photoshop expert")

	cases := []struct {
		name    string
		resumes []documents.Document
	}{
		{name: "a submitted first", resumes: []documents.Document{a, b}},
		{name: "b submitted first", resumes: []documents.Document{b, a}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := (&Pipeline{}).Run(context.Background(), jd, tc.resumes)
			require.NoError(t, err)

			records := result.Ranked.Records()
			require.Len(t, records, 2)
			assert.Equal(t, scoring.Record{Name: "a.txt", Score: 10, Reasoning: "Temp local scoring: 2 matching keywords."}, records[0])
			assert.Equal(t, scoring.Record{Name: "b.txt", Score: 0, Reasoning: "Temp local scoring: 0 matching keywords."}, records[1])
		})
	}
}

func TestRunRequiresInput(t *testing.T) {
	p := &Pipeline{}

	_, err := p.Run(context.Background(), documents.Document{}, []documents.Document{textDoc("a.txt", "go")})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = p.Run(context.Background(), textDoc("jd.txt", "go"), nil)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestRunFailsOnUnreadableJobDescription(t *testing.T) {
	p := &Pipeline{}

	_, err := p.Run(context.Background(),
		textDoc("jd.txt", "bad \xff bytes"),
		[]documents.Document{textDoc("a.txt", "go")},
	)
	require.Error(t, err)

	var decodeErr *documents.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "jd.txt", decodeErr.Name)
}

func TestRunSkipsFailedResume(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	p := &Pipeline{Logger: zap.New(core)}

	result, err := p.Run(context.Background(),
		textDoc("jd.txt", "go kubernetes"),
		[]documents.Document{
			textDoc("broken.txt", "go \xff"),
			textDoc("good.txt", "go developer"),
		},
	)
	require.NoError(t, err)

	require.Equal(t, 1, result.Ranked.Len())
	top, ok := result.Ranked.Top()
	require.True(t, ok)
	assert.Equal(t, "good.txt", top.Name)

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken.txt", failed[0].Name)
	var decodeErr *documents.DecodeError
	assert.ErrorAs(t, failed[0].Err, &decodeErr)

	assert.Equal(t, Step{Initial: 2, Dropped: 1, Left: 1}, result.Summary)

	entries := observed.FilterMessage("screening step").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 2, fields["initial"])
	assert.EqualValues(t, 1, fields["dropped"])
	assert.EqualValues(t, 1, fields["left"])

	assert.Len(t, observed.FilterMessage("resume skipped").All(), 1)
	assert.Len(t, observed.FilterMessage("screening resume").All(), 2)
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	scorer := &fakeScorer{fail: map[string]error{"first.txt": errors.New("model unavailable")}}
	p := &Pipeline{Scorer: scorer, Policy: PolicyAbort}

	result, err := p.Run(context.Background(),
		textDoc("jd.txt", "go"),
		[]documents.Document{textDoc("first.txt", "go"), textDoc("second.txt", "go")},
	)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Equal(t, []string{"first.txt"}, scorer.called)
}

func TestRunTreatsScorerFailureAsDocumentFailure(t *testing.T) {
	scorer := &fakeScorer{fail: map[string]error{"first.txt": errors.New("model unavailable")}}
	p := &Pipeline{Scorer: scorer}

	result, err := p.Run(context.Background(),
		textDoc("jd.txt", "go"),
		[]documents.Document{textDoc("first.txt", "go"), textDoc("second.txt", "go")},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"first.txt", "second.txt"}, scorer.called)
	require.Len(t, result.Failed(), 1)
	assert.Equal(t, StateFailed, result.Statuses[0].State)
	assert.Equal(t, StateScored, result.Statuses[1].State)
}

func TestRunAppliesDocumentTimeout(t *testing.T) {
	p := &Pipeline{Scorer: &fakeScorer{block: true}, Timeout: 10 * time.Millisecond}

	result, err := p.Run(context.Background(),
		textDoc("jd.txt", "go"),
		[]documents.Document{textDoc("slow.txt", "go")},
	)
	require.NoError(t, err)

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, context.DeadlineExceeded)
	assert.Zero(t, result.Ranked.Len())
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Pipeline{}
	_, err := p.Run(ctx, textDoc("jd.txt", "go"), []documents.Document{textDoc("a.txt", "go")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunScoreDoesNotDependOnBatch(t *testing.T) {
	jd := textDoc("jd.txt", "go kubernetes terraform aws")
	target := textDoc("target.txt", "go aws")

	p := &Pipeline{}
	alone, err := p.Run(context.Background(), jd, []documents.Document{target})
	require.NoError(t, err)

	together, err := p.Run(context.Background(), jd, []documents.Document{
		textDoc("other.txt", "go kubernetes terraform aws"),
		target,
		textDoc("third.txt", strings.Repeat("aws ", 10)),
	})
	require.NoError(t, err)

	find := func(r *Result) scoring.Record {
		for _, record := range r.Ranked.Records() {
			if record.Name == target.Name {
				return record
			}
		}
		t.Fatalf("record %s not found", target.Name)
		return scoring.Record{}
	}

	assert.Equal(t, find(alone), find(together))
	assert.NotEqual(t, alone.RunID, together.RunID)
}

func TestRunUsesCustomExtractor(t *testing.T) {
	p := &Pipeline{
		Extract: func(_ context.Context, doc documents.Document) (string, error) {
			return strings.ToUpper(string(doc.Data)), nil
		},
		Scorer: &fakeScorer{},
	}

	result, err := p.Run(context.Background(),
		documents.Document{Name: "jd", Type: documents.Unknown, Data: []byte("x")},
		[]documents.Document{{Name: "r", Type: documents.Unknown, Data: []byte("ab")}},
	)
	require.NoError(t, err)

	top, ok := result.Ranked.Top()
	require.True(t, ok)
	assert.Equal(t, 100, top.Score)
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": PolicySkip, "skip": PolicySkip, " Abort ": PolicyAbort}
	for input, expected := range cases {
		got, err := ParsePolicy(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParsePolicy("retry")
	assert.Error(t, err)
	assert.Equal(t, "abort", PolicyAbort.String())
	assert.Equal(t, "skip", PolicySkip.String())
}
