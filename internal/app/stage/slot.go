// Package stage arbitrates the single occupier of the stage.
package stage

import (
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/domain"
)

type Outcome int

const (
	Unchanged Outcome = iota
	Taken
	Refreshed
	// Lost means somebody else already holds the stage.
	Lost
)

func (o Outcome) String() string {
	switch o {
	case Taken:
		return "taken"
	case Refreshed:
		return "refreshed"
	case Lost:
		return "lost"
	default:
		return "unchanged"
	}
}

// Take resolves a take request against the current occupier. The first
// request in transport order wins; a repeated take by the occupier only
// refreshes its tracks.
func Take(cur, cand *peer.Participant) (*peer.Participant, Outcome) {
	switch {
	case cur == nil:
		return cand, Taken
	case cur.ID != cand.ID:
		return cur, Lost
	case peer.SameTracks(cur, cand):
		return cur, Unchanged
	default:
		return cand, Refreshed
	}
}

// Release clears the stage whoever asks; ownership is checked by the sender.
func Release(cur *peer.Participant) (*peer.Participant, bool) {
	return nil, cur != nil
}

// Vacate clears the stage when id, which left the conference, occupies it.
func Vacate(cur *peer.Participant, id domain.ParticipantID) (*peer.Participant, bool) {
	if cur == nil || cur.ID != id {
		return cur, false
	}
	return nil, true
}

// Reconcile brings the cached occupier in line with its current view. A nil
// fresh means the occupier is gone.
func Reconcile(cur, fresh *peer.Participant) (*peer.Participant, bool) {
	switch {
	case cur == nil:
		return nil, false
	case fresh == nil:
		return nil, true
	case fresh.ID != cur.ID, peer.SameTracks(cur, fresh):
		return cur, false
	default:
		return fresh, true
	}
}
