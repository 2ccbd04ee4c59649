package database

import (
	"context"
	"fritter/internal/models"
	"sort"

	"github.com/google/uuid"
)

// FreetSort selects the ordering of ListFreets.
type FreetSort string

const (
	SortRecent   FreetSort = "recent"   // dateModified desc
	SortPopular  FreetSort = "popular"  // likes desc
	SortCredible FreetSort = "credible" // approves desc
)

// ParseFreetSort defaults unknown values to SortRecent.
func ParseFreetSort(s string) FreetSort {
	switch FreetSort(s) {
	case SortPopular, SortCredible:
		return FreetSort(s)
	}
	return SortRecent
}

// FreetStore persists freets and their embedded reputation aggregate.
type FreetStore interface {
	CreateFreet(ctx context.Context, freet *models.Freet) error
	// GetFreet fails with utils.ErrPostNotFound when the freet does not exist.
	GetFreet(ctx context.Context, id uuid.UUID) (*models.Freet, error)
	ListFreets(ctx context.Context, sort FreetSort, limit int) ([]*models.Freet, error)
	ListFreetsByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]*models.Freet, error)
	// SaveFreet replaces the freet if its stored Version still equals
	// freet.Version, then bumps freet.Version. A lost race yields utils.ErrConflict.
	SaveFreet(ctx context.Context, freet *models.Freet) error
	// UpdateFreetLikes atomically adds delta to the like counter.
	UpdateFreetLikes(ctx context.Context, id uuid.UUID, delta int) (*models.Freet, error)
	DeleteFreet(ctx context.Context, id uuid.UUID) error
}

// ReactionStore holds like, approve and disapprove records, one collection
// per kind, at most one record per (user, freet) in each.
type ReactionStore interface {
	// AddReaction fails with utils.ErrAlreadyReacted on a duplicate.
	AddReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (*models.Reaction, error)
	// FindReaction returns nil, nil when no record exists.
	FindReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (*models.Reaction, error)
	DeleteReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (bool, error)
	ListReactionsByUser(ctx context.Context, kind models.ReactionKind, userID uuid.UUID) ([]*models.Reaction, error)
	ListReactionsForFreet(ctx context.Context, kind models.ReactionKind, freetID uuid.UUID) ([]*models.Reaction, error)
	DeleteReactionsForFreet(ctx context.Context, freetID uuid.UUID) error
}

// LinkLedger is the evidence ledger: one entry per (freet, polarity, url)
// carrying the contributor count and set. It is the source of truth for link
// counts; freet tally maps mirror it.
type LinkLedger interface {
	// AddContribution creates the entry at count 1 or adds user to it. Adding
	// a user already in the set returns the entry unchanged.
	AddContribution(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string, userID uuid.UUID) (*models.EvidenceLink, error)
	// RemoveContribution removes user, deleting the entry when its count hits
	// zero. Returns the remaining entry, or nil when none is left. Removing a
	// user who is not a contributor is a no-op.
	RemoveContribution(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string, userID uuid.UUID) (*models.EvidenceLink, error)
	// GetLink returns nil, nil when no entry exists.
	GetLink(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string) (*models.EvidenceLink, error)
	// ListLinks returns entries ordered by count desc, then url asc.
	ListLinks(ctx context.Context, freetID uuid.UUID, polarity models.Polarity) ([]*models.EvidenceLink, error)
	DeleteLinksForFreet(ctx context.Context, freetID uuid.UUID) error
}

// Store bundles the three stores plus lifecycle.
type Store interface {
	FreetStore
	ReactionStore
	LinkLedger
	Close(ctx context.Context) error
}

// sortLinks orders ledger entries by count desc, breaking ties by url asc.
func sortLinks(links []*models.EvidenceLink) {
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Count != links[j].Count {
			return links[i].Count > links[j].Count
		}
		return links[i].URL < links[j].URL
	})
}
