package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigdanielk/web-builder/internal/eventstore"
	"github.com/craigdanielk/web-builder/internal/llm"
	"github.com/craigdanielk/web-builder/internal/stages"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventstore.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e eventstore.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type()
	}
	return out
}

func TestEmitterRecordsRunLifecycle(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := &recordingPublisher{}

	em := NewEmitter("run-1", "acme", store, pub)
	em.RunStarted(eventstore.RunStartedMeta{StartStage: "scaffold"})
	em.OnStageStart(stages.Sections)
	em.OnRetry(llm.Request{Stage: "section"}, 1, 5*time.Second, errors.New("overloaded"))
	em.UnitCompleted(eventstore.UnitOutcome{Ordinal: 0, File: "01-hero.tsx", Repaired: true})
	em.OnStageComplete(stages.Sections, 2*time.Second, stages.ResultSuccess, nil)

	report := stages.NewReport("run-1", "acme")
	report.Units = 1
	report.UnitsRepaired = 1
	report.Retries = 1
	stages.Complete(&stages.Env{Report: report, Observer: em})

	assert.Equal(t, []string{
		eventstore.TypeRunStarted,
		eventstore.TypeStageStarted,
		eventstore.TypeRetryScheduled,
		eventstore.TypeUnitCompleted,
		eventstore.TypeStageCompleted,
		eventstore.TypeRunCompleted,
	}, pub.types())

	summary, err := eventstore.LatestRun(t.Context(), store, "acme")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, 1, summary.Repaired)
	assert.Equal(t, 1, summary.Retries)
	assert.Equal(t, "success", summary.Outcome)
}

func TestEmitterFailedRunCarriesFailingStage(t *testing.T) {
	pub := &recordingPublisher{}
	em := NewEmitter("run-2", "acme", nil, pub)

	report := stages.NewReport("run-2", "acme")
	se := stages.NewFatalError(stages.Sections, errors.New("retries exhausted"))
	report.AddIssue(stages.IssueRetriesExhausted, stages.Sections, stages.SeverityError, se.Error(), true, se)
	stages.Complete(&stages.Env{Report: report, Observer: em})

	require.Len(t, pub.events, 1)
	var totals eventstore.RunTotals
	require.NoError(t, json.Unmarshal(pub.events[0].Payload(), &totals))
	assert.Equal(t, "failed", totals.Outcome)
	assert.Equal(t, "sections", totals.FailStage)
	assert.Contains(t, totals.FailError, "retries exhausted")
}

func TestEmitterSinkFailureDoesNotPanic(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	em := NewEmitter("run-3", "acme", nil, pub)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			em.UnitCompleted(eventstore.UnitOutcome{Ordinal: i})
		}()
	}
	wg.Wait()
	assert.Empty(t, pub.events)
}

func TestSubjectSanitizesTokens(t *testing.T) {
	ev, err := eventstore.NewStageStarted("run", "acme.co site", "sections")
	require.NoError(t, err)
	assert.Equal(t, "webbuilder.runs.acme_co_site.StageStarted", Subject("webbuilder.runs", ev))
}

func TestNewEnvelopeKeepsPayload(t *testing.T) {
	ev, err := eventstore.NewUnitCompleted("run", "acme", eventstore.UnitOutcome{Ordinal: 1, File: "02-features.tsx"})
	require.NoError(t, err)

	data, err := json.Marshal(NewEnvelope(ev))
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":1,"file":"02-features.tsx","truncated":false,"repaired":false,"reused":false,"duration_ms":0}`,
		string(mustField(t, data, "payload")))
}

func mustField(t *testing.T, data []byte, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return m[key]
}
