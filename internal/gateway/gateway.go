// Package gateway turns inbound pull request events and on-demand polls into
// lifecycle transitions: extraction, verdict, store update and crediting.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/credit"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
	"github.com/sevigo/bounty-warden/internal/greptile"
	"github.com/sevigo/bounty-warden/internal/review"
)

// Outcome is the result of processing an event or poll for one pull request.
type Outcome struct {
	Record *core.PRRecord
	// Pending is set when no parseable bot review exists yet; Record is unchanged.
	Pending bool
	// Credit is set when this call credited the contributor.
	Credit *credit.Result
}

// Gateway serializes all work per PR key and is the only writer of review results.
type Gateway struct {
	store           core.Store
	github          ghclient.Client
	reviews         greptile.Client
	credits         *credit.Coordinator
	botLogin        string
	autoCredit      bool
	requestReviews  bool
	pendingTimeout  time.Duration
	upstreamTimeout time.Duration
	now             func() time.Time
	locksMu         sync.Mutex
	locks           map[string]*keyLock
	logger          *slog.Logger
}

// keyLock is a per-key mutex shared by refs in-flight operations.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a gateway. reviews may be nil when no review service is configured.
func New(
	cfg *config.Config,
	store core.Store,
	github ghclient.Client,
	reviews greptile.Client,
	credits *credit.Coordinator,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		store:           store,
		github:          github,
		reviews:         reviews,
		credits:         credits,
		botLogin:        cfg.GitHub.BotLogin,
		autoCredit:      cfg.Credit.Auto,
		requestReviews:  cfg.Greptile.RequestReviews,
		pendingTimeout:  cfg.PendingTimeout,
		upstreamTimeout: cfg.UpstreamTimeout,
		now:             time.Now,
		locks:           make(map[string]*keyLock),
		logger:          logger,
	}
}

// lock serializes operations on key. Operations on different keys never block each other.
// The entry for key is dropped once no operation holds or waits for it.
func (g *Gateway) lock(key string) func() {
	g.locksMu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{}
		g.locks[key] = l
	}
	l.refs++
	g.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, key)
		}
		g.locksMu.Unlock()
	}
}

func (g *Gateway) boundary(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.upstreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.upstreamTimeout)
}

// HandlePullRequest starts (or restarts) tracking for an opened, synchronized or
// reopened pull request. A credited record keeps its status so a later push can
// never lead to a second payout.
func (g *Gateway) HandlePullRequest(ctx context.Context, ev *core.PullRequestEvent) (*core.PRRecord, error) {
	key := ev.Key()
	defer g.lock(key)()
	log := g.logger.With("pr", key, "action", ev.Action)

	existing, err := g.store.Get(ctx, key)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if existing != nil && existing.Status == core.StatusCredited {
		log.Info("pull request already credited, keeping status")
		rec, err := g.store.Update(ctx, key, core.PRUpdate{Title: core.Ptr(ev.Title)})
		if err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", key, err)
		}
		return rec, nil
	}

	rec, err := g.store.Create(ctx, &core.PRRecord{
		ID:     key,
		Owner:  ev.Owner,
		Repo:   ev.Repo,
		Number: ev.Number,
		Title:  ev.Title,
		Author: ev.Author,
		Status: core.StatusReviewing,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", key, err)
	}
	if rec.Status == core.StatusCredited {
		log.Info("pull request credited concurrently, keeping status")
		return rec, nil
	}
	log.Info("tracking pull request", "author", ev.Author)

	if !g.requestReviews || g.reviews == nil {
		return rec, nil
	}

	bctx, cancel := g.boundary(ctx)
	ref, err := g.reviews.StartReview(bctx, ev.Owner, ev.Repo, ev.Number)
	cancel()
	if err != nil {
		log.Warn("review request failed, waiting for bot content", "error", err)
		return rec, nil
	}
	updated, err := g.store.Update(ctx, key, core.PRUpdate{ReviewRef: core.Ptr(ref)})
	if err != nil {
		return nil, fmt.Errorf("failed to store review reference for %s: %w", key, err)
	}
	if updated == nil {
		return rec, nil
	}
	return updated, nil
}

// HandleBotContent processes a comment or review posted on a pull request.
// Content from anyone but the review bot is ignored.
func (g *Gateway) HandleBotContent(ctx context.Context, ev *core.BotContentEvent) (*Outcome, error) {
	if !core.IsBot(ev.Commenter, g.botLogin) {
		return nil, fmt.Errorf("%w: %s is not the review bot", core.ErrIgnored, ev.Commenter)
	}
	key := ev.Key()
	defer g.lock(key)()

	rec, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return g.applyReview(ctx, rec, []string{ev.Body})
}

// Credit pays the contributor of a pass record on operator request.
func (g *Gateway) Credit(ctx context.Context, key string, amount int64) (*credit.Result, error) {
	if _, _, _, err := core.ParseKey(key); err != nil {
		return nil, err
	}
	defer g.lock(key)()
	return g.credits.Credit(ctx, key, credit.Options{Amount: amount, Manual: true})
}

// Get returns the record for key.
func (g *Gateway) Get(ctx context.Context, key string) (*core.PRRecord, error) {
	return g.store.Get(ctx, key)
}

// List returns all records, most recently updated first.
func (g *Gateway) List(ctx context.Context) ([]*core.PRRecord, error) {
	return g.store.List(ctx)
}

// Delete removes a record. It is an administrative escape hatch.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	defer g.lock(key)()
	if err := g.store.Delete(ctx, key); err != nil {
		return err
	}
	g.logger.Warn("pull request record deleted", "pr", key)
	return nil
}

// applyReview runs the first parseable body through extraction and the verdict
// engine and records the result. Must be called with the key lock held.
//
// Only reviewing records take a verdict; pass records retry a failed auto
// credit, and every other status is left as is.
func (g *Gateway) applyReview(ctx context.Context, rec *core.PRRecord, bodies []string) (*Outcome, error) {
	log := g.logger.With("pr", rec.ID)

	switch rec.Status {
	case core.StatusReviewing:
	case core.StatusPass:
		return g.settle(ctx, &Outcome{Record: rec})
	default:
		log.Debug("review content ignored for settled record", "status", rec.Status)
		return &Outcome{Record: rec}, nil
	}

	var structured *core.StructuredReview
	for _, body := range bodies {
		r, err := review.Extract(body)
		if err == nil {
			structured = r
			break
		}
	}
	if structured == nil {
		log.Debug("bot content not parseable yet")
		return &Outcome{Record: rec, Pending: true}, nil
	}

	verdict := review.Decide(structured)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: aborted before recording verdict for %s: %v", core.ErrUpstream, rec.ID, err)
	}

	updated, err := g.store.Update(ctx, rec.ID, core.PRUpdate{
		Status: core.Ptr(verdict.Status()),
		Review: structured,
		Notes:  core.Ptr(structured.Summary),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record verdict for %s: %w", rec.ID, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: pull request %s was removed", core.ErrNotFound, rec.ID)
	}
	log.Info("review recorded", "verdict", verdict, "score", structured.Score, "issues", len(structured.Issues))

	return g.settle(ctx, &Outcome{Record: updated})
}

// settle credits a pass record when auto crediting is enabled. A failed credit
// is returned to the caller and leaves the pass status in place.
func (g *Gateway) settle(ctx context.Context, out *Outcome) (*Outcome, error) {
	if !g.autoCredit || out.Record.Status != core.StatusPass {
		return out, nil
	}

	res, err := g.credits.Credit(ctx, out.Record.ID, credit.Options{})
	switch {
	case err == nil:
		out.Record = res.Record
		out.Credit = res
		return out, nil
	case errors.Is(err, core.ErrDuplicateCredit):
		if current, gerr := g.store.Get(ctx, out.Record.ID); gerr == nil {
			out.Record = current
		}
		return out, nil
	default:
		g.logger.Error("review passed but crediting failed", "pr", out.Record.ID, "error", err)
		return nil, fmt.Errorf("review recorded as pass but crediting failed: %w", err)
	}
}
