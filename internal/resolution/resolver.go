package resolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jamesbarge/postboxd-sub001/internal/confidence"
	"github.com/jamesbarge/postboxd-sub001/internal/dedupe"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/logging"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
	"github.com/jamesbarge/postboxd-sub001/internal/queue"
)

// Binder applies an accepted external identity. *dedupe.Resolver satisfies it.
type Binder interface {
	MergeOnBind(ctx context.Context, currentID string, candidate film.Candidate) (dedupe.BindOutcome, error)
}

// ReviewQueue stores proposals awaiting a human decision. *queue.Store satisfies it.
type ReviewQueue interface {
	Enqueue(ctx context.Context, entry queue.Entry) (*queue.Item, error)
}

// AliasRecorder remembers raw listing titles for resolved films.
type AliasRecorder interface {
	AddAlias(ctx context.Context, filmID, rawTitle, sourceID string) error
}

// Dependencies wires a Resolver. Aliases and Notifier are optional.
type Dependencies struct {
	Engine   *confidence.Engine
	Binder   Binder
	Reviews  ReviewQueue
	Aliases  AliasRecorder
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Resolution reports what happened to one observation.
type Resolution struct {
	// FilmID is the film holding the listing afterwards. It differs from the
	// observed film when a merge folded it into another.
	FilmID   string
	Decision confidence.Decision
	Best     *confidence.Ranked
	Bind     dedupe.BindOutcome
	ReviewID string
	Reason   string
}

// Resolver scores observations and applies their decisions.
type Resolver struct {
	engine   *confidence.Engine
	binder   Binder
	reviews  ReviewQueue
	aliases  AliasRecorder
	notifier notifications.Service
	logger   *slog.Logger
}

// NewResolver validates deps and builds a Resolver.
func NewResolver(deps Dependencies) (*Resolver, error) {
	if deps.Binder == nil || deps.Reviews == nil {
		return nil, errors.New("resolution: binder and review queue are required")
	}
	engine := deps.Engine
	if engine == nil {
		engine = confidence.NewEngine(confidence.DefaultPolicy())
	}
	return &Resolver{
		engine:   engine,
		binder:   deps.Binder,
		reviews:  deps.Reviews,
		aliases:  deps.Aliases,
		notifier: deps.Notifier,
		logger:   logging.NewComponentLogger(deps.Logger, "resolution"),
	}, nil
}

// Resolve ranks obs's candidates and applies the best one's decision.
func (r *Resolver) Resolve(ctx context.Context, obs Observation) (Resolution, error) {
	if err := obs.validate(); err != nil {
		return Resolution{}, err
	}
	ctx = logging.WithFilmID(ctx, obs.FilmID)
	if obs.SourceID != "" {
		ctx = logging.WithSourceID(ctx, obs.SourceID)
	}
	logger := logging.WithContext(ctx, r.logger)

	ranked, err := r.engine.Rank(obs.RawTitle, obs.RawYear, bindable(obs.Candidates), obs.Signals)
	if err != nil {
		return Resolution{}, fmt.Errorf("rank candidates: %w", err)
	}
	if len(ranked) == 0 {
		logger.Info("no usable candidates",
			logging.Args(logging.DecisionAttrs("match", string(confidence.DecisionReject), "no candidates with an external id and title")...)...)
		return Resolution{FilmID: obs.FilmID, Decision: confidence.DecisionReject, Reason: "no usable candidates"}, nil
	}

	best := ranked[0]
	res := Resolution{FilmID: obs.FilmID, Decision: best.Result.Decision, Best: &best}
	attrs := []logging.Attr{
		logging.String("raw_title", obs.RawTitle),
		logging.String("candidate_title", best.Candidate.Title),
		logging.String("external_id", best.Candidate.ExternalID),
		logging.Score("overall", best.Result.Overall),
		logging.Score("title_match", best.Result.Components.TitleMatch),
		logging.Score("year_match", best.Result.Components.YearMatch),
		logging.Int("candidates", len(ranked)),
	}

	switch best.Result.Decision {
	case confidence.DecisionAutoApply:
		return r.apply(ctx, logger, obs, res, attrs)
	case confidence.DecisionReview:
		res.Reason = fmt.Sprintf("confidence %.2f needs review", best.Result.Overall)
		return r.queueReview(ctx, logger, obs, res, attrs)
	default:
		res.Reason = fmt.Sprintf("confidence %.2f below review floor", best.Result.Overall)
		logger.Info("match rejected", logging.Args(append(attrs,
			logging.DecisionAttrs("match", string(confidence.DecisionReject), res.Reason)...)...)...)
		return res, nil
	}
}

func (r *Resolver) apply(ctx context.Context, logger *slog.Logger, obs Observation, res Resolution, attrs []logging.Attr) (Resolution, error) {
	// A merge must not be abandoned half way because the caller stopped.
	applyCtx := context.WithoutCancel(ctx)
	outcome, err := r.binder.MergeOnBind(applyCtx, obs.FilmID, res.Best.Candidate)
	if errors.Is(err, dedupe.ErrAlreadyBound) {
		res.Decision = confidence.DecisionReview
		res.Reason = "film already bound to a different external id"
		return r.queueReview(ctx, logger, obs, res, attrs)
	}
	if err != nil {
		return res, fmt.Errorf("apply match for %s: %w", obs.FilmID, err)
	}
	res.Bind = outcome
	res.FilmID = outcome.FilmID
	res.Reason = "applied: " + string(outcome.Action)

	if r.aliases != nil {
		if err := r.aliases.AddAlias(applyCtx, outcome.FilmID, obs.RawTitle, obs.SourceID); err != nil {
			logging.WarnWithContext(logger, "alias not recorded", "alias_failed",
				logging.String(logging.FieldErrorHint, "the match was applied; the raw title will be recorded on the next run"),
				logging.Error(err))
		}
	}

	logger.Info("match applied", logging.Args(append(attrs,
		append(logging.DecisionAttrs("match", string(confidence.DecisionAutoApply), res.Reason),
			logging.String("canonical_id", outcome.FilmID),
			logging.Int64("references_moved", outcome.Moved))...)...)...)

	if outcome.Action == dedupe.BindActionMerged {
		r.notify(ctx, logger, notifications.EventFilmsMerged, notifications.Payload{
			"duplicateID": obs.FilmID,
			"canonicalID": outcome.FilmID,
			"moved":       outcome.Moved,
		})
	}
	return res, nil
}

func (r *Resolver) queueReview(ctx context.Context, logger *slog.Logger, obs Observation, res Resolution, attrs []logging.Attr) (Resolution, error) {
	item, err := r.reviews.Enqueue(ctx, queue.Entry{
		FilmID:    obs.FilmID,
		RawTitle:  obs.RawTitle,
		RawYear:   obs.RawYear,
		Candidate: res.Best.Candidate,
		Result:    res.Best.Result,
		Reason:    res.Reason,
	})
	if err != nil {
		return res, fmt.Errorf("queue review for %s: %w", obs.FilmID, err)
	}
	res.ReviewID = item.ID

	logger.Info("match queued for review", logging.Args(append(attrs,
		append(logging.DecisionAttrs("match", string(confidence.DecisionReview), res.Reason),
			logging.String("review_id", item.ID))...)...)...)

	r.notify(ctx, logger, notifications.EventReviewQueued, notifications.Payload{
		"rawTitle":       obs.RawTitle,
		"candidateTitle": res.Best.Candidate.Title,
		"overall":        fmt.Sprintf("%.2f", res.Best.Result.Overall),
	})
	return res, nil
}

func (r *Resolver) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logger.Warn("notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String("event", string(event)),
			logging.Error(err))
	}
}

// bindable drops candidates that could never be bound.
func bindable(candidates []film.Candidate) []film.Candidate {
	out := make([]film.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.ExternalID) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
