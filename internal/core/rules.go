package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkarev/pokerboard/internal/domain"
)

var (
	// ErrInvalidPayload rejects commands with malformed or missing fields.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidVote rejects vote values outside the deck.
	ErrInvalidVote = errors.New("invalid vote")
)

// The mutation rules below are pure: they take a session, return a new one
// and never touch their input. A returned error means the command is
// rejected and the stored session must stay as it was.

// UpsertParticipant adds the participant or, if the id is already present,
// replaces its name and role while preserving the current vote.
func UpsertParticipant(s domain.SessionData, id, name string, role domain.Role) (domain.SessionData, error) {
	p, err := domain.NewParticipant(id, name, role)
	if err != nil {
		return domain.SessionData{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	s = s.Clone()

	if i := s.Find(p.ID); i >= 0 {
		p.Vote = s.Participants[i].Vote
		s.Participants[i] = p
		return s, nil
	}
	s.Participants = append(s.Participants, p)
	return s, nil
}

// SubmitVote sets (or, with nil, retracts) the participant's vote. A vote
// for an id no longer in the room is an expected race with leave and is
// silently discarded.
func SubmitVote(s domain.SessionData, id string, vote *domain.Vote) (domain.SessionData, error) {
	if vote != nil && !vote.Valid() {
		return domain.SessionData{}, fmt.Errorf("%w: %q", ErrInvalidVote, *vote)
	}
	i := s.Find(strings.TrimSpace(id))
	if i < 0 {
		return s, nil
	}
	s = s.Clone()
	if vote == nil {
		s.Participants[i].Vote = nil
	} else {
		v := *vote
		s.Participants[i].Vote = &v
	}
	return s, nil
}

// Reveal makes all votes visible. It is deliberately unconditional; whether
// reveal should be offered before anyone voted is the caller's concern.
func Reveal(s domain.SessionData) (domain.SessionData, error) {
	s.StoryStatus = domain.StoryRevealed
	return s, nil
}

// Reset clears every vote and returns the room to pending. Membership,
// names and roles are untouched.
func Reset(s domain.SessionData) (domain.SessionData, error) {
	s = s.Clone()
	s.StoryStatus = domain.StoryPending
	for i := range s.Participants {
		s.Participants[i].Vote = nil
	}
	return s, nil
}

// RemoveParticipant drops the participant with the given id. No-op if
// absent.
func RemoveParticipant(s domain.SessionData, id string) (domain.SessionData, error) {
	out := s.Participants[:0:0]
	for _, p := range s.Participants {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.Participants = out
	return s, nil
}
