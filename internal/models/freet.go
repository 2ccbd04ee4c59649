package models

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceMark is the uniqueness key that stops one actor from counting the
// same link twice under one polarity.
type EvidenceMark struct {
	URL    string
	UserID uuid.UUID
}

// Freet is a post together with its embedded reputation aggregate. The
// aggregate fields are mutated only through the methods below, and only the
// reputation coordinator calls the mutating ones.
type Freet struct {
	ID           uuid.UUID `json:"id"`
	AuthorID     uuid.UUID `json:"authorId"`
	Content      string    `json:"content"`
	DateCreated  time.Time `json:"dateCreated"`
	DateModified time.Time `json:"dateModified"`

	Likes       int `json:"likes"`
	Approves    int `json:"approves"`
	Disapproves int `json:"disapproves"`

	ApproveLinks    map[string]int         `json:"approveLinks"` // url -> occurrences across all approvers
	DisapproveLinks map[string]int         `json:"disapproveLinks"`
	Approvers       map[uuid.UUID][]string `json:"approvers"` // user -> ordered evidence urls
	Disapprovers    map[uuid.UUID][]string `json:"disapprovers"`

	UniqueApproveMarks    map[EvidenceMark]struct{} `json:"-"`
	UniqueDisapproveMarks map[EvidenceMark]struct{} `json:"-"`

	// Version is bumped on every aggregate write and used for compare-and-swap.
	Version int64 `json:"version"`
}

// NewFreet returns an empty freet authored by authorID.
func NewFreet(authorID uuid.UUID, content string) *Freet {
	now := time.Now().UTC()
	f := &Freet{
		ID:           uuid.New(),
		AuthorID:     authorID,
		Content:      content,
		DateCreated:  now,
		DateModified: now,
	}
	f.EnsureMaps()
	return f
}

// EnsureMaps initialises nil aggregate maps, e.g. after decoding.
func (f *Freet) EnsureMaps() {
	if f.ApproveLinks == nil {
		f.ApproveLinks = make(map[string]int)
	}
	if f.DisapproveLinks == nil {
		f.DisapproveLinks = make(map[string]int)
	}
	if f.Approvers == nil {
		f.Approvers = make(map[uuid.UUID][]string)
	}
	if f.Disapprovers == nil {
		f.Disapprovers = make(map[uuid.UUID][]string)
	}
	if f.UniqueApproveMarks == nil {
		f.UniqueApproveMarks = make(map[EvidenceMark]struct{})
	}
	if f.UniqueDisapproveMarks == nil {
		f.UniqueDisapproveMarks = make(map[EvidenceMark]struct{})
	}
}

func (f *Freet) EvidenceOf(p Polarity) map[uuid.UUID][]string {
	f.EnsureMaps()
	if p == Approve {
		return f.Approvers
	}
	return f.Disapprovers
}

func (f *Freet) TallyOf(p Polarity) map[string]int {
	f.EnsureMaps()
	if p == Approve {
		return f.ApproveLinks
	}
	return f.DisapproveLinks
}

func (f *Freet) MarksOf(p Polarity) map[EvidenceMark]struct{} {
	f.EnsureMaps()
	if p == Approve {
		return f.UniqueApproveMarks
	}
	return f.UniqueDisapproveMarks
}

func (f *Freet) counter(p Polarity) *int {
	if p == Approve {
		return &f.Approves
	}
	return &f.Disapproves
}

// Count returns the approve or disapprove total.
func (f *Freet) Count(p Polarity) int {
	return *f.counter(p)
}

// HasReactor reports whether user holds an entry in the per-user evidence map.
func (f *Freet) HasReactor(p Polarity, user uuid.UUID) bool {
	_, ok := f.EvidenceOf(p)[user]
	return ok
}

// PolarityOf returns the polarity user currently holds on the aggregate.
func (f *Freet) PolarityOf(user uuid.UUID) Polarity {
	switch {
	case f.HasReactor(Approve, user):
		return Approve
	case f.HasReactor(Disapprove, user):
		return Disapprove
	}
	return NoPolarity
}

// AddReactor registers user under p with an empty evidence list and bumps
// the counter. It is a no-op (returning false) when user is already present,
// which keeps retries from double counting.
func (f *Freet) AddReactor(p Polarity, user uuid.UUID) bool {
	evidence := f.EvidenceOf(p)
	if _, ok := evidence[user]; ok {
		return false
	}
	evidence[user] = []string{}
	*f.counter(p)++
	return true
}

// RemoveReactor drops user from p, clearing its evidence list and unique
// marks, and decrements the counter. Tally maps are left to the caller,
// which resyncs them from the ledger. Returns the forfeited links.
func (f *Freet) RemoveReactor(p Polarity, user uuid.UUID) ([]string, bool) {
	evidence := f.EvidenceOf(p)
	links, ok := evidence[user]
	if !ok {
		return nil, false
	}
	marks := f.MarksOf(p)
	for _, url := range links {
		delete(marks, EvidenceMark{URL: url, UserID: user})
	}
	delete(evidence, user)
	if c := f.counter(p); *c > 0 {
		*c--
	}
	return links, true
}

// HasEvidence reports whether user has attached url under p.
func (f *Freet) HasEvidence(p Polarity, user uuid.UUID, url string) bool {
	_, ok := f.MarksOf(p)[EvidenceMark{URL: url, UserID: user}]
	return ok
}

// EvidenceCount is the number of links user has attached under p.
func (f *Freet) EvidenceCount(p Polarity, user uuid.UUID) int {
	return len(f.EvidenceOf(p)[user])
}

// AppendEvidence appends url to user's list and marks it unique. It does not
// check the quota or the reactor entry; callers do.
func (f *Freet) AppendEvidence(p Polarity, user uuid.UUID, url string) bool {
	if f.HasEvidence(p, user, url) {
		return false
	}
	evidence := f.EvidenceOf(p)
	evidence[user] = append(evidence[user], url)
	f.MarksOf(p)[EvidenceMark{URL: url, UserID: user}] = struct{}{}
	return true
}

// RemoveEvidence removes url from user's list and clears the unique mark.
func (f *Freet) RemoveEvidence(p Polarity, user uuid.UUID, url string) bool {
	if !f.HasEvidence(p, user, url) {
		return false
	}
	evidence := f.EvidenceOf(p)
	kept := make([]string, 0, len(evidence[user]))
	for _, existing := range evidence[user] {
		if existing != url {
			kept = append(kept, existing)
		}
	}
	evidence[user] = kept
	delete(f.MarksOf(p), EvidenceMark{URL: url, UserID: user})
	return true
}

// SetTally stores count for url; a count of zero or less removes the entry.
func (f *Freet) SetTally(p Polarity, url string, count int) {
	tally := f.TallyOf(p)
	if count <= 0 {
		delete(tally, url)
		return
	}
	tally[url] = count
}

// Clone returns a deep copy.
func (f *Freet) Clone() *Freet {
	c := *f
	c.ApproveLinks = make(map[string]int, len(f.ApproveLinks))
	for k, v := range f.ApproveLinks {
		c.ApproveLinks[k] = v
	}
	c.DisapproveLinks = make(map[string]int, len(f.DisapproveLinks))
	for k, v := range f.DisapproveLinks {
		c.DisapproveLinks[k] = v
	}
	c.Approvers = cloneEvidence(f.Approvers)
	c.Disapprovers = cloneEvidence(f.Disapprovers)
	c.UniqueApproveMarks = make(map[EvidenceMark]struct{}, len(f.UniqueApproveMarks))
	for k := range f.UniqueApproveMarks {
		c.UniqueApproveMarks[k] = struct{}{}
	}
	c.UniqueDisapproveMarks = make(map[EvidenceMark]struct{}, len(f.UniqueDisapproveMarks))
	for k := range f.UniqueDisapproveMarks {
		c.UniqueDisapproveMarks[k] = struct{}{}
	}
	return &c
}

func cloneEvidence(src map[uuid.UUID][]string) map[uuid.UUID][]string {
	dst := make(map[uuid.UUID][]string, len(src))
	for user, links := range src {
		dst[user] = append([]string{}, links...)
	}
	return dst
}

// Summary builds the client-facing counters, with actor's own polarity when
// actor is not uuid.Nil.
func (f *Freet) Summary(actor uuid.UUID) *ReputationSummary {
	s := &ReputationSummary{
		FreetID:     f.ID,
		Likes:       f.Likes,
		Approves:    f.Approves,
		Disapproves: f.Disapproves,
	}
	if actor != uuid.Nil {
		s.Polarity = f.PolarityOf(actor)
	}
	return s
}
