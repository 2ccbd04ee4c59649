package models

import (
	"fmt"
	"strings"
)

// Polarity is the reputation direction an actor holds on a freet.
type Polarity string

const (
	Approve    Polarity = "approve"
	Disapprove Polarity = "disapprove"
	NoPolarity Polarity = "" // Actor holds neither approval nor disapproval
)

// ParsePolarity accepts "approve"/"disapprove" (case-insensitive) plus the
// "disprove" spelling used by older clients.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return Approve, nil
	case "disapprove", "disprove":
		return Disapprove, nil
	}
	return NoPolarity, fmt.Errorf("invalid polarity %q", s)
}

// Opposite returns the other polarity.
func (p Polarity) Opposite() Polarity {
	if p == Approve {
		return Disapprove
	}
	return Approve
}

// IsApprove reports whether the polarity is Approve.
func (p Polarity) IsApprove() bool {
	return p == Approve
}

// ReactionKind identifies which record store a reaction lives in.
type ReactionKind string

const (
	LikeReaction       ReactionKind = "like"
	ApproveReaction    ReactionKind = "approve"
	DisapproveReaction ReactionKind = "disapprove"
)

// Kind maps a polarity onto its record kind.
func (p Polarity) Kind() ReactionKind {
	if p == Approve {
		return ApproveReaction
	}
	return DisapproveReaction
}

// LinkQuota is the maximum number of evidence links one actor may attach per
// polarity per freet.
const LinkQuota = 3
