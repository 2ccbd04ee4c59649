package simulator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"sort"
	"time"

	"fritter/internal/models"

	"github.com/google/uuid"
)

// activity weights; retracts and detaches are rarer than the writes they undo
var activityWeights = []struct {
	name   string
	weight int
}{
	{"approve", 20},
	{"disapprove", 15},
	{"attach", 25},
	{"detach", 8},
	{"retract", 7},
	{"like", 15},
	{"unlike", 5},
	{"ranking", 5},
}

func pickActivity(rng *rand.Rand) string {
	total := 0
	for _, a := range activityWeights {
		total += a.weight
	}
	n := rng.Intn(total)
	for _, a := range activityWeights {
		if n < a.weight {
			return a.name
		}
		n -= a.weight
	}
	return activityWeights[0].name
}

func randomPolarity(rng *rand.Rand) models.Polarity {
	if rng.Intn(2) == 0 {
		return models.Approve
	}
	return models.Disapprove
}

// performActivity issues one random request. Precondition failures are an
// expected part of the traffic mix and are only counted.
func (s *Simulator) performActivity(ctx context.Context, rng *rand.Rand, user *SimulatedUser, freetID uuid.UUID) {
	base := "/freets/" + freetID.String()
	activity := pickActivity(rng)

	var method, endpoint string
	var body interface{}
	switch activity {
	case "approve":
		method, endpoint = "POST", base+"/approve"
	case "disapprove":
		method, endpoint = "POST", base+"/disapprove"
	case "retract":
		method, endpoint = "DELETE", base+"/reactions/"+string(randomPolarity(rng))
	case "attach":
		method, endpoint = "POST", base+"/links/"+string(randomPolarity(rng))
		body = map[string]string{"url": s.urls[rng.Intn(len(s.urls))]}
	case "detach":
		method = "DELETE"
		endpoint = fmt.Sprintf("%s/links/%s?url=%s", base, randomPolarity(rng),
			url.QueryEscape(s.urls[rng.Intn(len(s.urls))]))
	case "like":
		method, endpoint = "POST", base+"/like"
	case "unlike":
		method, endpoint = "DELETE", base+"/like"
	case "ranking":
		method, endpoint = "GET", base+"/links/"+string(randomPolarity(rng))
	}

	start := time.Now()
	err := s.client.makeRequest(ctx, user.Token, method, endpoint, body, nil)
	if ctx.Err() != nil {
		return
	}
	s.recordRequest(activity, time.Since(start), err)
}

type rankedLinks struct {
	Links []models.LinkResult `json:"links"`
}

// audit checks every freet's aggregate against the ledger served by the
// ranking endpoint and against the per-actor invariants.
func (s *Simulator) audit(ctx context.Context) ([]string, error) {
	log.Printf("Phase 4: Auditing %d freets...", len(s.freets))
	token := s.users[0].Token
	var violations []string

	for _, freetID := range s.freets {
		var freet models.Freet
		if err := s.client.makeRequest(ctx, token, "GET", "/freets/"+freetID.String(), nil, &freet); err != nil {
			return nil, err
		}
		violations = append(violations, auditAggregate(&freet)...)

		for _, p := range []models.Polarity{models.Approve, models.Disapprove} {
			var ranked rankedLinks
			if err := s.client.makeRequest(ctx, token, "GET", "/freets/"+freetID.String()+"/links/"+string(p), nil, &ranked); err != nil {
				return nil, err
			}
			violations = append(violations, compareTally(&freet, p, ranked.Links)...)
		}
	}

	if len(violations) == 0 {
		log.Printf("Audit passed: tallies match the ledger for all %d freets", len(s.freets))
	} else {
		for _, v := range violations {
			log.Printf("Audit violation: %s", v)
		}
	}
	return violations, nil
}

func auditAggregate(f *models.Freet) []string {
	var out []string
	if f.Approves != len(f.Approvers) {
		out = append(out, fmt.Sprintf("freet %s: approves=%d but %d approvers", f.ID, f.Approves, len(f.Approvers)))
	}
	if f.Disapproves != len(f.Disapprovers) {
		out = append(out, fmt.Sprintf("freet %s: disapproves=%d but %d disapprovers", f.ID, f.Disapproves, len(f.Disapprovers)))
	}
	for user, links := range f.Approvers {
		if _, both := f.Disapprovers[user]; both {
			out = append(out, fmt.Sprintf("freet %s: user %s holds both polarities", f.ID, user))
		}
		if len(links) > models.LinkQuota {
			out = append(out, fmt.Sprintf("freet %s: user %s has %d approve links", f.ID, user, len(links)))
		}
	}
	for user, links := range f.Disapprovers {
		if len(links) > models.LinkQuota {
			out = append(out, fmt.Sprintf("freet %s: user %s has %d disapprove links", f.ID, user, len(links)))
		}
	}
	return out
}

func compareTally(f *models.Freet, p models.Polarity, ledger []models.LinkResult) []string {
	var out []string
	tally := f.ApproveLinks
	holders := f.Approvers
	if p == models.Disapprove {
		tally = f.DisapproveLinks
		holders = f.Disapprovers
	}

	seen := make(map[string]bool, len(ledger))
	for _, l := range ledger {
		seen[l.URL] = true
		if tally[l.URL] != l.Count {
			out = append(out, fmt.Sprintf("freet %s %s: tally[%s]=%d ledger=%d", f.ID, p, l.URL, tally[l.URL], l.Count))
		}
	}
	for u, n := range tally {
		if !seen[u] && n != 0 {
			out = append(out, fmt.Sprintf("freet %s %s: tally[%s]=%d missing from ledger", f.ID, p, u, n))
		}
	}

	// the tally must also equal the number of holders citing each url
	cited := make(map[string]int)
	for _, links := range holders {
		for _, u := range links {
			cited[u]++
		}
	}
	urls := make([]string, 0, len(cited))
	for u := range cited {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	for _, u := range urls {
		if cited[u] != tally[u] {
			out = append(out, fmt.Sprintf("freet %s %s: %d holders cite %s but tally=%d", f.ID, p, cited[u], u, tally[u]))
		}
	}
	return out
}
