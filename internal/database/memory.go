// internal/database/memory.go
package database

import (
	"context"
	"fmt"
	"fritter/internal/models"
	"fritter/internal/utils"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type reactionKey struct {
	kind    models.ReactionKind
	userID  uuid.UUID
	freetID uuid.UUID
}

type linkKey struct {
	freetID  uuid.UUID
	polarity models.Polarity
	url      string
}

// MemoryStore is a process-local Store used for DB_TYPE=memory, the
// simulator and tests. Values are cloned on the way in and out so callers
// never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	freets    map[uuid.UUID]*models.Freet
	reactions map[reactionKey]*models.Reaction
	links     map[linkKey]*models.EvidenceLink
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		freets:    make(map[uuid.UUID]*models.Freet),
		reactions: make(map[reactionKey]*models.Reaction),
		links:     make(map[linkKey]*models.EvidenceLink),
	}
}

var _ Store = (*MemoryStore)(nil)

func cloneLink(l *models.EvidenceLink) *models.EvidenceLink {
	c := *l
	c.Users = append([]uuid.UUID{}, l.Users...)
	return &c
}

func cloneReaction(r *models.Reaction) *models.Reaction {
	c := *r
	return &c
}

func (s *MemoryStore) CreateFreet(ctx context.Context, freet *models.Freet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.freets[freet.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "freet already exists", nil)
	}
	s.freets[freet.ID] = freet.Clone()
	return nil
}

func (s *MemoryStore) GetFreet(ctx context.Context, id uuid.UUID) (*models.Freet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	freet, ok := s.freets[id]
	if !ok {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	return freet.Clone(), nil
}

func (s *MemoryStore) ListFreets(ctx context.Context, order FreetSort, limit int) ([]*models.Freet, error) {
	return s.listFreets(func(*models.Freet) bool { return true }, order, limit), nil
}

func (s *MemoryStore) ListFreetsByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]*models.Freet, error) {
	return s.listFreets(func(f *models.Freet) bool { return f.AuthorID == authorID }, SortRecent, limit), nil
}

func (s *MemoryStore) listFreets(keep func(*models.Freet) bool, order FreetSort, limit int) []*models.Freet {
	s.mu.RLock()
	freets := make([]*models.Freet, 0, len(s.freets))
	for _, f := range s.freets {
		if keep(f) {
			freets = append(freets, f.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(freets, func(i, j int) bool {
		a, b := freets[i], freets[j]
		switch order {
		case SortPopular:
			if a.Likes != b.Likes {
				return a.Likes > b.Likes
			}
		case SortCredible:
			if a.Approves != b.Approves {
				return a.Approves > b.Approves
			}
		}
		if !a.DateModified.Equal(b.DateModified) {
			return a.DateModified.After(b.DateModified)
		}
		return a.ID.String() < b.ID.String()
	})

	if limit > 0 && len(freets) > limit {
		freets = freets[:limit]
	}
	return freets
}

func (s *MemoryStore) SaveFreet(ctx context.Context, freet *models.Freet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.freets[freet.ID]
	if !ok {
		return utils.NewPostNotFoundError(freet.ID.String())
	}
	if stored.Version != freet.Version {
		return utils.NewAppError(utils.ErrConflict, "freet was modified concurrently", nil)
	}

	freet.Version++
	s.freets[freet.ID] = freet.Clone()
	return nil
}

func (s *MemoryStore) UpdateFreetLikes(ctx context.Context, id uuid.UUID, delta int) (*models.Freet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	freet, ok := s.freets[id]
	if !ok {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	freet.Likes += delta
	freet.Version++
	return freet.Clone(), nil
}

func (s *MemoryStore) DeleteFreet(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.freets[id]; !ok {
		return utils.NewPostNotFoundError(id.String())
	}
	delete(s.freets, id)
	return nil
}

func (s *MemoryStore) AddReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (*models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{kind: kind, userID: userID, freetID: freetID}
	if _, exists := s.reactions[key]; exists {
		return nil, utils.NewAppError(utils.ErrAlreadyReacted, fmt.Sprintf("user already has a %s record", kind), nil)
	}
	reaction := &models.Reaction{
		ID:        uuid.New(),
		Kind:      kind,
		UserID:    userID,
		FreetID:   freetID,
		CreatedAt: time.Now().UTC(),
	}
	s.reactions[key] = reaction
	return cloneReaction(reaction), nil
}

func (s *MemoryStore) FindReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (*models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reaction, ok := s.reactions[reactionKey{kind: kind, userID: userID, freetID: freetID}]
	if !ok {
		return nil, nil
	}
	return cloneReaction(reaction), nil
}

func (s *MemoryStore) DeleteReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{kind: kind, userID: userID, freetID: freetID}
	if _, ok := s.reactions[key]; !ok {
		return false, nil
	}
	delete(s.reactions, key)
	return true, nil
}

func (s *MemoryStore) ListReactionsByUser(ctx context.Context, kind models.ReactionKind, userID uuid.UUID) ([]*models.Reaction, error) {
	s.mu.RLock()
	reactions := make([]*models.Reaction, 0)
	for key, r := range s.reactions {
		if key.kind == kind && key.userID == userID {
			reactions = append(reactions, cloneReaction(r))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(reactions, func(i, j int) bool {
		return reactions[i].CreatedAt.After(reactions[j].CreatedAt)
	})
	return reactions, nil
}

func (s *MemoryStore) ListReactionsForFreet(ctx context.Context, kind models.ReactionKind, freetID uuid.UUID) ([]*models.Reaction, error) {
	s.mu.RLock()
	reactions := make([]*models.Reaction, 0)
	for key, r := range s.reactions {
		if key.kind == kind && key.freetID == freetID {
			reactions = append(reactions, cloneReaction(r))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(reactions, func(i, j int) bool {
		return reactions[i].CreatedAt.Before(reactions[j].CreatedAt)
	})
	return reactions, nil
}

func (s *MemoryStore) DeleteReactionsForFreet(ctx context.Context, freetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.reactions {
		if key.freetID == freetID {
			delete(s.reactions, key)
		}
	}
	return nil
}

func (s *MemoryStore) AddContribution(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string, userID uuid.UUID) (*models.EvidenceLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{freetID: freetID, polarity: polarity, url: url}
	link, ok := s.links[key]
	if !ok {
		link = &models.EvidenceLink{
			ID:       uuid.New(),
			FreetID:  freetID,
			Polarity: polarity,
			URL:      url,
		}
		s.links[key] = link
	}
	if !link.HasUser(userID) {
		link.Users = append(link.Users, userID)
		link.Count++
	}
	return cloneLink(link), nil
}

func (s *MemoryStore) RemoveContribution(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string, userID uuid.UUID) (*models.EvidenceLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{freetID: freetID, polarity: polarity, url: url}
	link, ok := s.links[key]
	if !ok {
		return nil, nil
	}
	if link.HasUser(userID) {
		kept := make([]uuid.UUID, 0, len(link.Users))
		for _, u := range link.Users {
			if u != userID {
				kept = append(kept, u)
			}
		}
		link.Users = kept
		link.Count--
	}
	if link.Count <= 0 {
		delete(s.links, key)
		return nil, nil
	}
	return cloneLink(link), nil
}

func (s *MemoryStore) GetLink(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string) (*models.EvidenceLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[linkKey{freetID: freetID, polarity: polarity, url: url}]
	if !ok {
		return nil, nil
	}
	return cloneLink(link), nil
}

func (s *MemoryStore) ListLinks(ctx context.Context, freetID uuid.UUID, polarity models.Polarity) ([]*models.EvidenceLink, error) {
	s.mu.RLock()
	links := make([]*models.EvidenceLink, 0)
	for key, link := range s.links {
		if key.freetID == freetID && key.polarity == polarity && link.Count > 0 {
			links = append(links, cloneLink(link))
		}
	}
	s.mu.RUnlock()

	sortLinks(links)
	return links, nil
}

func (s *MemoryStore) DeleteLinksForFreet(ctx context.Context, freetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.links {
		if key.freetID == freetID {
			delete(s.links, key)
		}
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
