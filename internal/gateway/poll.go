package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/bounty-warden/internal/core"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
)

// Poll re-fetches the bot's review for key from GitHub (and the review service
// when a reference is stored) and runs it through the same path as a webhook.
// When nothing is available yet the record is left untouched and the outcome
// is marked pending, unless the pending timeout has expired.
func (g *Gateway) Poll(ctx context.Context, key string) (*Outcome, error) {
	if _, _, _, err := core.ParseKey(key); err != nil {
		return nil, err
	}
	defer g.lock(key)()

	rec, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec.Status != core.StatusReviewing {
		return g.applyReview(ctx, rec, nil)
	}

	bodies, err := g.fetchBotContent(ctx, rec)
	if err != nil {
		return nil, err
	}
	out, err := g.applyReview(ctx, rec, bodies)
	if err != nil || !out.Pending {
		return out, err
	}

	if text, ok := g.fetchServiceReview(ctx, rec); ok {
		out, err = g.applyReview(ctx, rec, []string{text})
		if err != nil || !out.Pending {
			return out, err
		}
	}
	return g.expireIfStale(ctx, out)
}

// fetchBotContent lists comments and reviews concurrently and returns the bot's
// bodies in preference order: newest review first, then newest issue comment.
func (g *Gateway) fetchBotContent(ctx context.Context, rec *core.PRRecord) ([]string, error) {
	bctx, cancel := g.boundary(ctx)
	defer cancel()

	var comments, reviews []ghclient.Contribution
	eg, egCtx := errgroup.WithContext(bctx)
	eg.Go(func() error {
		var err error
		comments, err = g.github.ListIssueComments(egCtx, rec.Owner, rec.Repo, rec.Number)
		return err
	})
	eg.Go(func() error {
		var err error
		reviews, err = g.github.ListReviews(egCtx, rec.Owner, rec.Repo, rec.Number)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("%w: failed to fetch bot content for %s: %v", core.ErrUpstream, rec.ID, err)
	}

	var bodies []string
	bodies = append(bodies, g.botBodies(reviews)...)
	bodies = append(bodies, g.botBodies(comments)...)
	return bodies, nil
}

// botBodies returns the non-empty bot bodies from items, newest first.
func (g *Gateway) botBodies(items []ghclient.Contribution) []string {
	var bodies []string
	for i := len(items) - 1; i >= 0; i-- {
		c := items[i]
		if core.IsBot(c.Author, g.botLogin) && strings.TrimSpace(c.Body) != "" {
			bodies = append(bodies, c.Body)
		}
	}
	return bodies
}

// fetchServiceReview asks the review service for the stored reference. Failures
// are logged and treated as "nothing yet".
func (g *Gateway) fetchServiceReview(ctx context.Context, rec *core.PRRecord) (string, bool) {
	if rec.ReviewRef == "" || g.reviews == nil {
		return "", false
	}
	bctx, cancel := g.boundary(ctx)
	defer cancel()

	text, err := g.reviews.GetReview(bctx, rec.ReviewRef)
	if err != nil {
		if !errors.Is(err, core.ErrExtractionPending) {
			g.logger.Warn("review service fetch failed", "pr", rec.ID, "ref", rec.ReviewRef, "error", err)
		}
		return "", false
	}
	return text, true
}

func (g *Gateway) expireIfStale(ctx context.Context, out *Outcome) (*Outcome, error) {
	rec := out.Record
	if g.pendingTimeout <= 0 || g.now().Sub(rec.CreatedAt) < g.pendingTimeout {
		return out, nil
	}

	note := fmt.Sprintf("No review received within %s", g.pendingTimeout)
	updated, err := g.store.Update(ctx, rec.ID, core.PRUpdate{
		Status: core.Ptr(core.StatusError),
		Notes:  core.Ptr(note),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expire %s: %w", rec.ID, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: pull request %s was removed", core.ErrNotFound, rec.ID)
	}
	g.logger.Warn("pending review timed out", "pr", rec.ID, "age", g.now().Sub(rec.CreatedAt))
	return &Outcome{Record: updated}, nil
}
