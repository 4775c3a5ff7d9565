package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/metrics"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// DefaultSummaryConcurrency bounds concurrent per-friend visit scans.
const DefaultSummaryConcurrency = 8

// VisitAggregator builds the read-only views of friends' visits.
type VisitAggregator struct {
	store       *store.Store
	metrics     *metrics.Recorder
	logger      *slog.Logger
	concurrency int
}

// NewVisitAggregator creates an aggregator. concurrency < 1 uses the default.
func NewVisitAggregator(store *store.Store, rec *metrics.Recorder, concurrency int, logger *slog.Logger) *VisitAggregator {
	if concurrency < 1 {
		concurrency = DefaultSummaryConcurrency
	}
	return &VisitAggregator{
		store:       store,
		metrics:     rec,
		logger:      logger,
		concurrency: concurrency,
	}
}

// SummarizeFriends returns one row per friend of me, in friend-list order:
// display name, how many places they visited and their most recent visit.
//
// Display names are best effort; if profiles cannot be read the names are
// null and the summary still succeeds. A failure reading any friend's visits
// fails the whole summary.
func (a *VisitAggregator) SummarizeFriends(ctx context.Context, me string) ([]domain.FriendSummary, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveSummary(time.Since(start)) }()

	friendIDs, err := a.store.ListFriendIDs(ctx, me)
	if err != nil {
		return nil, storeError(err, "list friends")
	}
	if len(friendIDs) == 0 {
		return []domain.FriendSummary{}, nil
	}

	names, err := a.store.GetDisplayNames(ctx, friendIDs)
	if err != nil {
		a.logger.Warn("friend display names unavailable", "user_id", me, "error", err)
		names = nil
	}

	summaries := make([]domain.FriendSummary, len(friendIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, friendID := range friendIDs {
		g.Go(func() error {
			visits, err := a.store.ListVisitsByUser(gctx, friendID)
			if err != nil {
				return fmt.Errorf("visits of %s: %w", friendID, err)
			}
			summaries[i] = summarize(friendID, visits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeError(err, "summarize friends")
	}

	for i := range summaries {
		if name, ok := names[summaries[i].FriendID]; ok {
			summaries[i].DisplayName = &name
		}
	}
	return summaries, nil
}

// summarize counts visited places and picks the latest visit. Ties keep the
// first record seen.
func summarize(friendID string, visits []*domain.Visit) domain.FriendSummary {
	summary := domain.FriendSummary{FriendID: friendID}

	var (
		last   *domain.Visit
		lastAt time.Time
	)
	for _, v := range visits {
		if v.IsVisited() {
			summary.VisitedCount++
		}
		at := v.LastVisitTime()
		if last == nil || at.After(lastAt) {
			last, lastAt = v, at
		}
	}

	if last != nil {
		summary.LastVisit = &domain.LastVisitInfo{
			PlaceID:   last.PlaceID,
			PlaceName: last.PlaceName,
			VisitDate: last.VisitDate,
			Timestamp: last.Timestamp,
		}
	}
	return summary
}

// FriendVisits returns friend's visits as me may see them. me must have an
// edge to friend; the check is directional.
func (a *VisitAggregator) FriendVisits(ctx context.Context, me, friend string) ([]domain.FriendVisit, error) {
	friend, err := requireID("friendId", friend)
	if err != nil {
		return nil, err
	}

	ok, err := a.store.FriendshipExists(ctx, me, friend)
	if err != nil {
		return nil, storeError(err, "check friendship")
	}
	if !ok {
		return nil, domainerrors.ErrNotFriends
	}

	visits, err := a.store.ListVisitsByUser(ctx, friend)
	if err != nil {
		return nil, storeError(err, "list friend visits")
	}

	out := make([]domain.FriendVisit, 0, len(visits))
	for _, v := range visits {
		out = append(out, v.FriendView())
	}
	return out, nil
}
