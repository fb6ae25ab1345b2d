package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
)

// Filter defines the interface for candidate item filtering
type Filter interface {
	ShouldKeep(ctx context.Context, item domain.CandidateItem) (bool, error)
}

// FilterItems applies all filters to a list of items, preserving order
func FilterItems(ctx context.Context, items []domain.CandidateItem, filters ...Filter) ([]domain.CandidateItem, error) {
	filtered := make([]domain.CandidateItem, 0, len(items))

	for _, item := range items {
		keep := true
		for _, f := range filters {
			shouldKeep, err := f.ShouldKeep(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("filter error for item %q: %w", item.Key(), err)
			}
			if !shouldKeep {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, item)
		}
	}

	return filtered, nil
}

// RecencyFilter keeps items published at or after a cutoff
type RecencyFilter struct {
	cutoff time.Time
}

// NewRecencyFilter creates a filter keeping items no older than window relative to now
func NewRecencyFilter(now time.Time, window time.Duration) *RecencyFilter {
	return &RecencyFilter{cutoff: now.Add(-window)}
}

// Cutoff returns the inclusive lower bound
func (f *RecencyFilter) Cutoff() time.Time {
	return f.cutoff
}

// ShouldKeep returns false if the item is older than the cutoff. The boundary itself is kept.
func (f *RecencyFilter) ShouldKeep(ctx context.Context, item domain.CandidateItem) (bool, error) {
	return !item.PublishedAt.Before(f.cutoff), nil
}

// DuplicateFilter drops items whose key was already seen
type DuplicateFilter struct {
	seen map[string]bool
}

// NewDuplicateFilter creates a new duplicate filter. It is stateful: the first
// occurrence of a key wins.
func NewDuplicateFilter() *DuplicateFilter {
	return &DuplicateFilter{
		seen: make(map[string]bool),
	}
}

// ShouldKeep returns false if an item with the same key was already kept
func (f *DuplicateFilter) ShouldKeep(ctx context.Context, item domain.CandidateItem) (bool, error) {
	key := item.Key()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

// AlreadyPublishedFilter drops items whose key is in a known set, e.g. links
// already archived for a previous episode
type AlreadyPublishedFilter struct {
	published map[string]bool
}

// NewAlreadyPublishedFilter creates a new already-published filter
func NewAlreadyPublishedFilter(published map[string]bool) *AlreadyPublishedFilter {
	return &AlreadyPublishedFilter{
		published: published,
	}
}

// ShouldKeep returns false if the item key is already in the published set
func (f *AlreadyPublishedFilter) ShouldKeep(ctx context.Context, item domain.CandidateItem) (bool, error) {
	return !f.published[item.Key()], nil
}
