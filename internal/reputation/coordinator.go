// Package reputation sequences every mutation that spans the freet
// aggregate, the reaction records and the evidence ledger.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"fritter/internal/database"
	"fritter/internal/models"
	"fritter/internal/utils"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	MaxContentLength = 140
	MaxURLLength     = 2048

	DefaultWriteRetries     = 5
	DefaultRankingCacheSize = 1024

	compensationTimeout = 5 * time.Second
)

type rankingKey struct {
	freetID  uuid.UUID
	polarity models.Polarity
}

// Options tunes a Coordinator. Zero values pick the defaults.
type Options struct {
	WriteRetries     int
	RankingCacheSize int
	Metrics          *utils.MetricsCollector
}

// Coordinator is the single writer of reputation state. Ledger entries are
// written first and are authoritative; the tally maps on the freet are
// always set from the ledger count. Freet writes are compare-and-swap with
// a bounded retry, and an earlier step is undone when a later one fails.
//
// Callers must serialize mutations per freet (see engine/actors); reads may
// be issued concurrently.
type Coordinator struct {
	freets    database.FreetStore
	reactions database.ReactionStore
	ledger    database.LinkLedger

	rankings     *lru.Cache[rankingKey, []models.LinkResult]
	rankMu       sync.Mutex
	rankEpoch    atomic.Uint64 // bumped by every invalidation
	writeRetries int
	metrics      *utils.MetricsCollector
}

func NewCoordinator(store database.Store, opts Options) (*Coordinator, error) {
	if opts.WriteRetries <= 0 {
		opts.WriteRetries = DefaultWriteRetries
	}
	if opts.RankingCacheSize <= 0 {
		opts.RankingCacheSize = DefaultRankingCacheSize
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.NewMetricsCollector()
	}

	rankings, err := lru.New[rankingKey, []models.LinkResult](opts.RankingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ranking cache: %v", err)
	}

	return &Coordinator{
		freets:       store,
		reactions:    store,
		ledger:       store,
		rankings:     rankings,
		writeRetries: opts.WriteRetries,
		metrics:      opts.Metrics,
	}, nil
}

// updateFreet re-reads the freet, applies mutate and saves it, retrying when
// the save loses a version race. mutate runs again on every attempt, so it
// must re-check its preconditions against the fresh copy. Its errors are
// returned without retrying.
func (c *Coordinator) updateFreet(ctx context.Context, freetID uuid.UUID, mutate func(*models.Freet) error) (*models.Freet, error) {
	var lastErr error
	for attempt := 1; attempt <= c.writeRetries; attempt++ {
		freet, err := c.freets.GetFreet(ctx, freetID)
		if err != nil {
			return nil, err
		}
		if err := mutate(freet); err != nil {
			return nil, err
		}

		err = c.freets.SaveFreet(ctx, freet)
		if err == nil {
			return freet, nil
		}
		if !errors.Is(err, utils.Conflict) {
			return nil, err
		}
		lastErr = err
		log.Printf("Coordinator: version conflict on freet %s (attempt %d/%d)", freetID, attempt, c.writeRetries)
	}
	return nil, lastErr
}

// compensate runs undo on a context that outlives the caller's cancellation.
func (c *Coordinator) compensate(ctx context.Context, op string, freetID uuid.UUID, undo func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := undo(ctx); err != nil {
		log.Printf("CRITICAL: Coordinator: compensation for %s on freet %s failed: %v", op, freetID, err)
		c.metrics.RecordCompensation(op, false)
		return
	}
	log.Printf("Coordinator: compensated %s on freet %s", op, freetID)
	c.metrics.RecordCompensation(op, true)
}

func (c *Coordinator) invalidateRankings(freetID uuid.UUID, polarities ...models.Polarity) {
	c.rankMu.Lock()
	defer c.rankMu.Unlock()
	c.rankEpoch.Add(1)
	for _, p := range polarities {
		c.rankings.Remove(rankingKey{freetID: freetID, polarity: p})
	}
}

// ledgerCount is the authoritative contributor count for a link.
func (c *Coordinator) ledgerCount(ctx context.Context, freetID uuid.UUID, p models.Polarity, url string) (int, error) {
	link, err := c.ledger.GetLink(ctx, freetID, p, url)
	if err != nil {
		return 0, err
	}
	if link == nil {
		return 0, nil
	}
	return link.Count, nil
}

// heldPolarity looks up which reaction record, if any, actor holds.
func (c *Coordinator) heldPolarity(ctx context.Context, actor, freetID uuid.UUID) (models.Polarity, error) {
	for _, p := range []models.Polarity{models.Approve, models.Disapprove} {
		record, err := c.reactions.FindReaction(ctx, p.Kind(), actor, freetID)
		if err != nil {
			return models.NoPolarity, err
		}
		if record != nil {
			return p, nil
		}
	}
	return models.NoPolarity, nil
}

func (c *Coordinator) Approve(ctx context.Context, actor, freetID uuid.UUID) (*models.ReputationSummary, error) {
	return c.react(ctx, actor, freetID, models.Approve)
}

func (c *Coordinator) Disapprove(ctx context.Context, actor, freetID uuid.UUID) (*models.ReputationSummary, error) {
	return c.react(ctx, actor, freetID, models.Disapprove)
}

func (c *Coordinator) react(ctx context.Context, actor, freetID uuid.UUID, p models.Polarity) (*models.ReputationSummary, error) {
	if _, err := c.freets.GetFreet(ctx, freetID); err != nil {
		return nil, err
	}

	held, err := c.heldPolarity(ctx, actor, freetID)
	if err != nil {
		return nil, err
	}
	if held != models.NoPolarity {
		return nil, utils.NewAppError(utils.ErrAlreadyReacted, fmt.Sprintf("already holds %s on this freet", held), nil)
	}

	if _, err := c.reactions.AddReaction(ctx, p.Kind(), actor, freetID); err != nil {
		return nil, err
	}

	freet, err := c.updateFreet(ctx, freetID, func(f *models.Freet) error {
		if f.HasReactor(p.Opposite(), actor) {
			return utils.NewAppError(utils.ErrAlreadyReacted, fmt.Sprintf("already holds %s on this freet", p.Opposite()), nil)
		}
		f.AddReactor(p, actor)
		return nil
	})
	if err != nil {
		c.compensate(ctx, string(p), freetID, func(ctx context.Context) error {
			_, err := c.reactions.DeleteReaction(ctx, p.Kind(), actor, freetID)
			return err
		})
		return nil, err
	}

	log.Printf("Coordinator: %s by %s on freet %s (approves=%d disapproves=%d)",
		p, actor, freetID, freet.Approves, freet.Disapproves)
	return freet.Summary(actor), nil
}

// Retract removes actor's approval or disapproval. Every evidence link the
// actor attached under p is forfeited: its ledger contribution is removed
// and the tally is reset from the ledger.
func (c *Coordinator) Retract(ctx context.Context, actor, freetID uuid.UUID, p models.Polarity) (*models.ReputationSummary, error) {
	freet, err := c.freets.GetFreet(ctx, freetID)
	if err != nil {
		return nil, err
	}

	record, err := c.reactions.FindReaction(ctx, p.Kind(), actor, freetID)
	if err != nil {
		return nil, err
	}
	// A leftover aggregate entry without a record is cleaned up too.
	if record == nil && !freet.HasReactor(p, actor) {
		return nil, utils.NewAppError(utils.ErrNotReacted, fmt.Sprintf("no %s to retract", p), nil)
	}

	removed := make(map[string]int)
	undoLedger := func(ctx context.Context) error {
		var errs []error
		for url := range removed {
			if _, err := c.ledger.AddContribution(ctx, freetID, p, url, actor); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	forfeit := func(url string) error {
		if _, done := removed[url]; done {
			return nil
		}
		remaining, err := c.ledger.RemoveContribution(ctx, freetID, p, url, actor)
		if err != nil {
			return err
		}
		removed[url] = 0
		if remaining != nil {
			removed[url] = remaining.Count
		}
		return nil
	}

	for _, url := range freet.EvidenceOf(p)[actor] {
		if err := forfeit(url); err != nil {
			if len(removed) > 0 {
				c.compensate(ctx, "retract", freetID, undoLedger)
			}
			return nil, err
		}
	}

	updated, err := c.updateFreet(ctx, freetID, func(f *models.Freet) error {
		links, _ := f.RemoveReactor(p, actor)
		for _, url := range links {
			if err := forfeit(url); err != nil {
				return err
			}
		}
		for url := range removed {
			count, err := c.ledgerCount(ctx, freetID, p, url)
			if err != nil {
				return err
			}
			f.SetTally(p, url, count)
		}
		return nil
	})
	if err != nil {
		if len(removed) > 0 {
			c.compensate(ctx, "retract", freetID, undoLedger)
		}
		return nil, err
	}
	c.invalidateRankings(freetID, p)

	// Deleted last: a failure here leaves a bare record that a repeated
	// Retract clears.
	if _, err := c.reactions.DeleteReaction(ctx, p.Kind(), actor, freetID); err != nil {
		return nil, err
	}

	log.Printf("Coordinator: %s retracted by %s on freet %s, %d link(s) forfeited", p, actor, freetID, len(removed))
	return updated.Summary(actor), nil
}

func normalizeURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", utils.NewAppError(utils.ErrInvalidInput, "url must not be empty", nil)
	}
	if len(url) > MaxURLLength {
		return "", utils.NewAppError(utils.ErrInvalidInput, fmt.Sprintf("url must be at most %d bytes", MaxURLLength), nil)
	}
	return url, nil
}

// checkAttach validates an AttachLink against the records and the aggregate.
func (c *Coordinator) checkAttach(ctx context.Context, freet *models.Freet, actor uuid.UUID, p models.Polarity, url string) error {
	held, err := c.heldPolarity(ctx, actor, freet.ID)
	if err != nil {
		return err
	}
	switch held {
	case models.NoPolarity:
		return utils.NewAppError(utils.ErrNotReacted, fmt.Sprintf("must %s before attaching evidence", p), nil)
	case p.Opposite():
		return utils.NewAppError(utils.ErrWrongPolarity, fmt.Sprintf("holds %s, cannot attach %s evidence", held, p), nil)
	}
	return checkEvidenceSlot(freet, actor, p, url)
}

func checkEvidenceSlot(freet *models.Freet, actor uuid.UUID, p models.Polarity, url string) error {
	if freet.HasEvidence(p, actor, url) {
		return utils.NewAppError(utils.ErrDuplicateLink, "link already attached: "+url, nil)
	}
	if freet.EvidenceCount(p, actor) >= models.LinkQuota {
		return utils.NewQuotaExceededError(models.LinkQuota)
	}
	return nil
}

// AttachLink adds url to actor's evidence under p and returns the ledger
// count for url afterwards.
func (c *Coordinator) AttachLink(ctx context.Context, actor, freetID uuid.UUID, p models.Polarity, url string) (*models.LinkResult, error) {
	url, err := normalizeURL(url)
	if err != nil {
		return nil, err
	}

	freet, err := c.freets.GetFreet(ctx, freetID)
	if err != nil {
		return nil, err
	}
	if err := c.checkAttach(ctx, freet, actor, p, url); err != nil {
		return nil, err
	}

	if _, err := c.ledger.AddContribution(ctx, freetID, p, url, actor); err != nil {
		return nil, err
	}

	var count int
	_, err = c.updateFreet(ctx, freetID, func(f *models.Freet) error {
		if err := checkEvidenceSlot(f, actor, p, url); err != nil {
			return err
		}
		if !f.HasReactor(p, actor) {
			// record exists but the aggregate missed it
			log.Printf("Coordinator: repairing missing %s entry for %s on freet %s", p, actor, freetID)
			f.AddReactor(p, actor)
		}
		f.AppendEvidence(p, actor, url)

		n, err := c.ledgerCount(ctx, freetID, p, url)
		if err != nil {
			return err
		}
		f.SetTally(p, url, n)
		count = n
		return nil
	})
	if err != nil {
		// a duplicate means the aggregate already lists this contribution
		if !errors.Is(err, utils.DuplicateLink) {
			c.compensate(ctx, "attach_link", freetID, func(ctx context.Context) error {
				_, err := c.ledger.RemoveContribution(ctx, freetID, p, url, actor)
				return err
			})
		}
		return nil, err
	}
	c.invalidateRankings(freetID, p)

	log.Printf("Coordinator: %s link %q attached by %s on freet %s (count=%d)", p, url, actor, freetID, count)
	return &models.LinkResult{FreetID: freetID, Polarity: p, URL: url, Count: count}, nil
}

// DetachLink is the inverse of AttachLink. Count in the result is what is
// left on the ledger, zero when the entry was deleted.
func (c *Coordinator) DetachLink(ctx context.Context, actor, freetID uuid.UUID, p models.Polarity, url string) (*models.LinkResult, error) {
	url = strings.TrimSpace(url)

	freet, err := c.freets.GetFreet(ctx, freetID)
	if err != nil {
		return nil, err
	}
	if !freet.HasEvidence(p, actor, url) {
		return nil, utils.NewAppError(utils.ErrLinkNotFound, fmt.Sprintf("no %s link %q attached", p, url), nil)
	}

	if _, err := c.ledger.RemoveContribution(ctx, freetID, p, url, actor); err != nil {
		return nil, err
	}

	var count int
	_, err = c.updateFreet(ctx, freetID, func(f *models.Freet) error {
		f.RemoveEvidence(p, actor, url)
		n, err := c.ledgerCount(ctx, freetID, p, url)
		if err != nil {
			return err
		}
		f.SetTally(p, url, n)
		count = n
		return nil
	})
	if err != nil {
		c.compensate(ctx, "detach_link", freetID, func(ctx context.Context) error {
			_, err := c.ledger.AddContribution(ctx, freetID, p, url, actor)
			return err
		})
		return nil, err
	}
	c.invalidateRankings(freetID, p)

	log.Printf("Coordinator: %s link %q detached by %s on freet %s (count=%d)", p, url, actor, freetID, count)
	return &models.LinkResult{FreetID: freetID, Polarity: p, URL: url, Count: count}, nil
}

// RankedLinks returns the ledger entries for p, most contributed first and
// ties by url.
func (c *Coordinator) RankedLinks(ctx context.Context, freetID uuid.UUID, p models.Polarity) ([]models.LinkResult, error) {
	key := rankingKey{freetID: freetID, polarity: p}
	if cached, ok := c.rankings.Get(key); ok {
		return append([]models.LinkResult{}, cached...), nil
	}
	epoch := c.rankEpoch.Load()

	if _, err := c.freets.GetFreet(ctx, freetID); err != nil {
		return nil, err
	}
	links, err := c.ledger.ListLinks(ctx, freetID, p)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.LinkResult, 0, len(links))
	for _, link := range links {
		ranked = append(ranked, models.LinkResult{FreetID: freetID, Polarity: p, URL: link.URL, Count: link.Count})
	}
	// a ranking loaded across an invalidation may already be stale
	c.rankMu.Lock()
	if c.rankEpoch.Load() == epoch {
		c.rankings.Add(key, ranked)
	}
	c.rankMu.Unlock()
	return append([]models.LinkResult{}, ranked...), nil
}

// MostPopularLinks returns the urls of RankedLinks.
func (c *Coordinator) MostPopularLinks(ctx context.Context, freetID uuid.UUID, p models.Polarity) ([]string, error) {
	ranked, err := c.RankedLinks(ctx, freetID, p)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(ranked))
	for _, r := range ranked {
		urls = append(urls, r.URL)
	}
	return urls, nil
}

func (c *Coordinator) Like(ctx context.Context, actor, freetID uuid.UUID) (*models.ReputationSummary, error) {
	if _, err := c.freets.GetFreet(ctx, freetID); err != nil {
		return nil, err
	}
	if _, err := c.reactions.AddReaction(ctx, models.LikeReaction, actor, freetID); err != nil {
		return nil, err
	}

	freet, err := c.freets.UpdateFreetLikes(ctx, freetID, 1)
	if err != nil {
		c.compensate(ctx, "like", freetID, func(ctx context.Context) error {
			_, err := c.reactions.DeleteReaction(ctx, models.LikeReaction, actor, freetID)
			return err
		})
		return nil, err
	}
	return freet.Summary(actor), nil
}

func (c *Coordinator) Unlike(ctx context.Context, actor, freetID uuid.UUID) (*models.ReputationSummary, error) {
	if _, err := c.freets.GetFreet(ctx, freetID); err != nil {
		return nil, err
	}
	deleted, err := c.reactions.DeleteReaction(ctx, models.LikeReaction, actor, freetID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, utils.NewAppError(utils.ErrNotReacted, "freet is not liked", nil)
	}

	freet, err := c.freets.UpdateFreetLikes(ctx, freetID, -1)
	if err != nil {
		c.compensate(ctx, "unlike", freetID, func(ctx context.Context) error {
			_, err := c.reactions.AddReaction(ctx, models.LikeReaction, actor, freetID)
			return err
		})
		return nil, err
	}
	return freet.Summary(actor), nil
}

// ReactionState reports what actor currently holds on a freet.
func (c *Coordinator) ReactionState(ctx context.Context, actor, freetID uuid.UUID) (*models.ReactionState, error) {
	freet, err := c.freets.GetFreet(ctx, freetID)
	if err != nil {
		return nil, err
	}

	like, err := c.reactions.FindReaction(ctx, models.LikeReaction, actor, freetID)
	if err != nil {
		return nil, err
	}
	held, err := c.heldPolarity(ctx, actor, freetID)
	if err != nil {
		return nil, err
	}

	state := &models.ReactionState{
		FreetID:  freetID,
		Liked:    like != nil,
		Polarity: held,
		Links:    []string{},
	}
	if held != models.NoPolarity {
		state.Links = append(state.Links, freet.EvidenceOf(held)[actor]...)
	}
	return state, nil
}

// Reconcile rebuilds a freet's aggregate from the authoritative stores. The
// approve and disapprove records decide who holds each polarity, and the like
// records decide the like count. Ledger contributions from users without a
// matching record are withdrawn first. The per-user evidence lists and the
// tally maps are then rebuilt from the ledger.
func (c *Coordinator) Reconcile(ctx context.Context, freetID uuid.UUID) (*models.Freet, error) {
	if _, err := c.freets.GetFreet(ctx, freetID); err != nil {
		return nil, err
	}

	holders := make(map[models.Polarity]map[uuid.UUID]bool, 2)
	ledger := make(map[models.Polarity][]*models.EvidenceLink, 2)
	for _, p := range []models.Polarity{models.Approve, models.Disapprove} {
		records, err := c.reactions.ListReactionsForFreet(ctx, p.Kind(), freetID)
		if err != nil {
			return nil, err
		}
		holders[p] = make(map[uuid.UUID]bool, len(records))
		for _, r := range records {
			holders[p][r.UserID] = true
		}

		links, err := c.pruneOrphanContributions(ctx, freetID, p, holders[p])
		if err != nil {
			return nil, err
		}
		ledger[p] = links
	}

	likes, err := c.reactions.ListReactionsForFreet(ctx, models.LikeReaction, freetID)
	if err != nil {
		return nil, err
	}

	freet, err := c.updateFreet(ctx, freetID, func(f *models.Freet) error {
		for _, p := range []models.Polarity{models.Approve, models.Disapprove} {
			rebuildPolarity(f, p, holders[p], ledger[p])
		}
		f.Likes = len(likes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.invalidateRankings(freetID, models.Approve, models.Disapprove)
	log.Printf("Coordinator: reconciled freet %s", freetID)
	return freet, nil
}

// pruneOrphanContributions withdraws ledger contributions whose user holds no
// record of polarity p, and returns the remaining entries.
func (c *Coordinator) pruneOrphanContributions(ctx context.Context, freetID uuid.UUID, p models.Polarity,
	holders map[uuid.UUID]bool) ([]*models.EvidenceLink, error) {
	links, err := c.ledger.ListLinks(ctx, freetID, p)
	if err != nil {
		return nil, err
	}

	pruned := false
	for _, link := range links {
		for _, user := range link.Users {
			if holders[user] {
				continue
			}
			if _, err := c.ledger.RemoveContribution(ctx, freetID, p, link.URL, user); err != nil {
				return nil, err
			}
			log.Printf("Coordinator: reconcile withdrew orphan %s link %s by %s on freet %s", p, link.URL, user, freetID)
			pruned = true
		}
	}
	if !pruned {
		return links, nil
	}
	return c.ledger.ListLinks(ctx, freetID, p)
}

// rebuildPolarity makes the aggregate's reactors for p equal holders, each
// reactor's evidence equal its ledger contributions, and the tally equal the
// ledger counts. Existing evidence keeps its order; recovered links are
// appended in ledger order.
func rebuildPolarity(f *models.Freet, p models.Polarity, holders map[uuid.UUID]bool, links []*models.EvidenceLink) {
	contributed := make(map[uuid.UUID]map[string]bool)
	for _, link := range links {
		for _, user := range link.Users {
			if contributed[user] == nil {
				contributed[user] = make(map[string]bool)
			}
			contributed[user][link.URL] = true
		}
	}

	evidence := f.EvidenceOf(p)
	for user, urls := range evidence {
		if !holders[user] {
			f.RemoveReactor(p, user)
			continue
		}
		for _, url := range append([]string(nil), urls...) {
			if !contributed[user][url] {
				f.RemoveEvidence(p, user, url)
			}
		}
	}
	for user := range holders {
		f.AddReactor(p, user)
	}
	for _, link := range links {
		for _, user := range link.Users {
			f.AppendEvidence(p, user, link.URL)
		}
	}
	*countOf(f, p) = len(evidence)

	tally := f.TallyOf(p)
	for url := range tally {
		delete(tally, url)
	}
	for _, link := range links {
		f.SetTally(p, link.URL, link.Count)
	}
}

func countOf(f *models.Freet, p models.Polarity) *int {
	if p == models.Approve {
		return &f.Approves
	}
	return &f.Disapproves
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", utils.NewAppError(utils.ErrInvalidInput, "freet content must not be empty", nil)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", utils.NewAppError(utils.ErrInvalidInput, fmt.Sprintf("freet content must be at most %d characters", MaxContentLength), nil)
	}
	return content, nil
}

func (c *Coordinator) CreateFreet(ctx context.Context, author uuid.UUID, content string) (*models.Freet, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	freet := models.NewFreet(author, content)
	if err := c.freets.CreateFreet(ctx, freet); err != nil {
		return nil, err
	}
	log.Printf("Coordinator: created freet %s by %s", freet.ID, author)
	return freet, nil
}

func (c *Coordinator) GetFreet(ctx context.Context, freetID uuid.UUID) (*models.Freet, error) {
	return c.freets.GetFreet(ctx, freetID)
}

func (c *Coordinator) ListFreets(ctx context.Context, order database.FreetSort, limit int) ([]*models.Freet, error) {
	return c.freets.ListFreets(ctx, order, limit)
}

func (c *Coordinator) ListFreetsByAuthor(ctx context.Context, author uuid.UUID, limit int) ([]*models.Freet, error) {
	return c.freets.ListFreetsByAuthor(ctx, author, limit)
}

// UpdateFreet replaces the content. Only the author may edit.
func (c *Coordinator) UpdateFreet(ctx context.Context, actor, freetID uuid.UUID, content string) (*models.Freet, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	return c.updateFreet(ctx, freetID, func(f *models.Freet) error {
		if f.AuthorID != actor {
			return utils.NewAppError(utils.ErrForbidden, "only the author may modify a freet", nil)
		}
		f.Content = content
		f.DateModified = time.Now().UTC()
		return nil
	})
}

// DeleteFreet removes the freet, then its reaction records and ledger
// entries. Only the author may delete.
func (c *Coordinator) DeleteFreet(ctx context.Context, actor, freetID uuid.UUID) error {
	freet, err := c.freets.GetFreet(ctx, freetID)
	if err != nil {
		return err
	}
	if freet.AuthorID != actor {
		return utils.NewAppError(utils.ErrForbidden, "only the author may delete a freet", nil)
	}

	if err := c.freets.DeleteFreet(ctx, freetID); err != nil {
		return err
	}
	c.invalidateRankings(freetID, models.Approve, models.Disapprove)

	// Orphans are unreachable once the freet is gone, so failures are logged only.
	if err := c.reactions.DeleteReactionsForFreet(ctx, freetID); err != nil {
		log.Printf("Coordinator: failed to delete reactions of freet %s: %v", freetID, err)
	}
	if err := c.ledger.DeleteLinksForFreet(ctx, freetID); err != nil {
		log.Printf("Coordinator: failed to delete links of freet %s: %v", freetID, err)
	}

	log.Printf("Coordinator: deleted freet %s", freetID)
	return nil
}

// LikedFreets lists the freets actor has liked, newest like first.
func (c *Coordinator) LikedFreets(ctx context.Context, actor uuid.UUID) ([]*models.Freet, error) {
	likes, err := c.reactions.ListReactionsByUser(ctx, models.LikeReaction, actor)
	if err != nil {
		return nil, err
	}

	freets := make([]*models.Freet, 0, len(likes))
	for _, like := range likes {
		freet, err := c.freets.GetFreet(ctx, like.FreetID)
		if errors.Is(err, utils.PostNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		freets = append(freets, freet)
	}
	return freets, nil
}
