package resolution_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jamesbarge/postboxd-sub001/internal/dedupe"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/resolution"
	"github.com/jamesbarge/postboxd-sub001/internal/testsupport"
)

type stubProposer struct {
	calls      atomic.Int32
	candidates map[string][]film.Candidate
}

func (p *stubProposer) Propose(_ context.Context, obs resolution.Observation) ([]film.Candidate, error) {
	p.calls.Add(1)
	candidates, ok := p.candidates[obs.RawTitle]
	if !ok {
		return nil, errors.New("oracle has no answer")
	}
	return candidates, nil
}

func TestBatchRunsEveryObservation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	titles := []string{"Kind Hearts and Coronets", "The Ladykillers", "Whisky Galore", "Passport to Pimlico"}
	var observations []resolution.Observation
	for i, title := range titles {
		f := testsupport.NewFilm(t, h.films, film.Film{Title: title})
		observations = append(observations, strongObservation(f.ID, title, 1949+i, "ext-"+title))
	}
	// Unknown film: the bind fails but the batch carries on.
	observations = append(observations, strongObservation("missing-film", "Hue and Cry", 1947, "ext-hue"))

	proposer := &stubProposer{candidates: map[string][]film.Candidate{
		"The Cruel Sea": {{ExternalID: "ext-cruel", Title: "The Cruel Sea"}},
	}}
	proposed := testsupport.NewFilm(t, h.films, film.Film{Title: "The Cruel Sea"})
	observations = append(observations,
		resolution.Observation{FilmID: proposed.ID, RawTitle: "The Cruel Sea"},
		resolution.Observation{FilmID: proposed.ID, RawTitle: "Unknown to oracle"},
	)

	batch := resolution.NewBatch(h.resolver, proposer, resolution.BatchOptions{Workers: 3})
	summary := batch.Run(ctx, observations)

	if len(summary.Outcomes) != len(observations) {
		t.Fatalf("outcomes = %d, want %d", len(summary.Outcomes), len(observations))
	}
	if summary.Succeeded != 5 || summary.Failed != 2 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	for i, outcome := range summary.Outcomes {
		if outcome.Index != i || outcome.FilmID != observations[i].FilmID {
			t.Fatalf("outcome %d out of order: %+v", i, outcome)
		}
	}
	if got := summary.Outcomes[4]; got.Status != resolution.OutcomeFailed || !errors.Is(got.Err, dedupe.ErrNotFound) {
		t.Fatalf("missing film outcome = %+v", got)
	}
	if got := summary.Outcomes[5]; got.Status != resolution.OutcomeSucceeded || got.Resolution.ReviewID == "" {
		t.Fatalf("proposed outcome = %+v, want queued review", got)
	}
	if got := summary.Outcomes[6]; got.Status != resolution.OutcomeFailed {
		t.Fatalf("oracle failure outcome = %+v", got)
	}
	if proposer.calls.Load() != 2 {
		t.Fatalf("proposer calls = %d, want 2", proposer.calls.Load())
	}
}

func TestBatchCancelledBeforeStartSkipsEverything(t *testing.T) {
	h := newHarness(t)
	f := testsupport.NewFilm(t, h.films, film.Film{Title: "Brief Encounter"})
	observations := []resolution.Observation{
		strongObservation(f.ID, "Brief Encounter", 1945, "851"),
		strongObservation(f.ID, "Brief Encounter", 1945, "851"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := resolution.NewBatch(h.resolver, nil, resolution.BatchOptions{Workers: 2}).Run(ctx, observations)

	if summary.Skipped != 2 || summary.Succeeded != 0 {
		t.Fatalf("summary = %+v, want all skipped", summary)
	}
	for _, outcome := range summary.Outcomes {
		if !errors.Is(outcome.Err, context.Canceled) {
			t.Fatalf("skipped outcome err = %v, want context.Canceled", outcome.Err)
		}
	}
	unchanged, _ := h.films.GetFilm(context.Background(), f.ID)
	if unchanged.ExternalID != "" {
		t.Fatalf("cancelled batch applied a match: %+v", unchanged)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	h := newHarness(t)
	summary := resolution.NewBatch(h.resolver, nil, resolution.BatchOptions{}).Run(context.Background(), nil)
	if len(summary.Outcomes) != 0 || summary.Succeeded+summary.Failed+summary.Skipped != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

// timedProposer records when each call arrives.
type timedProposer struct {
	mu    sync.Mutex
	calls []time.Time
}

func (p *timedProposer) Propose(_ context.Context, obs resolution.Observation) ([]film.Candidate, error) {
	p.mu.Lock()
	p.calls = append(p.calls, time.Now())
	p.mu.Unlock()
	return []film.Candidate{{ExternalID: "ext-" + obs.FilmID, Title: obs.RawTitle}}, nil
}

func TestBatchSpacesProposerCallsPerWorker(t *testing.T) {
	h := newHarness(t)
	var observations []resolution.Observation
	for _, title := range []string{"Ikiru", "Yojimbo", "Sanjuro", "Ran"} {
		f := testsupport.NewFilm(t, h.films, film.Film{Title: title})
		observations = append(observations, resolution.Observation{FilmID: f.ID, RawTitle: title})
	}

	const minDelay = 50 * time.Millisecond
	proposer := &timedProposer{}
	summary := resolution.NewBatch(h.resolver, proposer, resolution.BatchOptions{Workers: 1, MinDelay: minDelay}).
		Run(context.Background(), observations)

	if summary.Succeeded != len(observations) {
		t.Fatalf("summary = %+v", summary)
	}
	if len(proposer.calls) != len(observations) {
		t.Fatalf("proposer calls = %d, want %d", len(proposer.calls), len(observations))
	}
	// Allow a little scheduler slack below the configured gap.
	const slack = 5 * time.Millisecond
	for i := 1; i < len(proposer.calls); i++ {
		if gap := proposer.calls[i].Sub(proposer.calls[i-1]); gap < minDelay-slack {
			t.Fatalf("gap before call %d = %s, want at least %s", i, gap, minDelay)
		}
	}
}

// blockingProposer holds its first call until release is closed.
type blockingProposer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (p *blockingProposer) Propose(_ context.Context, obs resolution.Observation) ([]film.Candidate, error) {
	p.calls.Add(1)
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return []film.Candidate{{ExternalID: "ext-" + obs.FilmID, Title: obs.RawTitle, Year: obs.RawYear}}, nil
}

func TestBatchCancelledMidRunFinishesInFlightItem(t *testing.T) {
	h := newHarness(t)
	var observations []resolution.Observation
	for i, title := range []string{"Tokyo Story", "Late Spring", "Floating Weeds"} {
		f := testsupport.NewFilm(t, h.films, film.Film{Title: title})
		observations = append(observations, resolution.Observation{FilmID: f.ID, RawTitle: title, RawYear: film.IntPtr(1949 + i)})
	}

	proposer := &blockingProposer{entered: make(chan struct{}), release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-proposer.entered
		cancel()
		close(proposer.release)
	}()

	summary := resolution.NewBatch(h.resolver, proposer, resolution.BatchOptions{Workers: 1}).Run(ctx, observations)

	first := summary.Outcomes[0]
	if first.Status != resolution.OutcomeSucceeded || first.Err != nil {
		t.Fatalf("in-flight outcome = %+v, want succeeded", first)
	}
	for _, outcome := range summary.Outcomes[1:] {
		if outcome.Status != resolution.OutcomeSkipped || !errors.Is(outcome.Err, context.Canceled) {
			t.Fatalf("outcome %d = %+v, want skipped with context.Canceled", outcome.Index, outcome)
		}
	}
	if summary.Succeeded != 1 || summary.Skipped != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := proposer.calls.Load(); got != 1 {
		t.Fatalf("proposer calls = %d, want only the in-flight item", got)
	}
}
