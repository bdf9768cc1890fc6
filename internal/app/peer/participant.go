package peer

import (
	"maps"
	"slices"

	"github.com/dkeye/vspace/internal/domain"
)

// Participant is an immutable snapshot. Track changes produce a new value via WithTrack.
type Participant struct {
	ID          domain.ParticipantID
	DisplayName string
	Audio       *Track
	Video       *Track
	IsSelf      bool
}

// Slot returns the track held for kind.
func (p *Participant) Slot(kind domain.TrackKind) *Track {
	if kind == domain.KindVideo {
		return p.Video
	}
	return p.Audio
}

// WithTrack returns a copy of p with the slot for kind replaced by t (nil clears it).
func (p *Participant) WithTrack(kind domain.TrackKind, t *Track) *Participant {
	next := *p
	if kind == domain.KindVideo {
		next.Video = t
	} else {
		next.Audio = t
	}
	return &next
}

// HasBorrowed reports whether p holds a track from NewBorrowedTrack.
func (p *Participant) HasBorrowed() bool {
	return (p.Audio != nil && p.Audio.Borrowed()) || (p.Video != nil && p.Video.Borrowed())
}

// DisposeBorrowed disposes the borrowed tracks of p and nothing else.
func (p *Participant) DisposeBorrowed() {
	for _, t := range []*Track{p.Audio, p.Video} {
		if t != nil && t.Borrowed() {
			_ = t.Dispose()
		}
	}
}

func trackID(t *Track) domain.TrackID {
	if t == nil {
		return ""
	}
	return t.ID()
}

// SameTracks reports whether a and b carry the same track identities.
func SameTracks(a, b *Participant) bool {
	return trackID(a.Audio) == trackID(b.Audio) && trackID(a.Video) == trackID(b.Video)
}

// Roster maps participant ids to snapshots. A published Roster is never mutated;
// With and Without build the next one.
type Roster map[domain.ParticipantID]*Participant

func (r Roster) With(p *Participant) Roster {
	next := make(Roster, len(r)+1)
	maps.Copy(next, r)
	next[p.ID] = p
	return next
}

func (r Roster) Without(id domain.ParticipantID) Roster {
	next := make(Roster, len(r))
	maps.Copy(next, r)
	delete(next, id)
	return next
}

func (r Roster) Get(id domain.ParticipantID) (*Participant, bool) {
	p, ok := r[id]
	return p, ok
}

// IDs returns the participant ids in sorted order.
func (r Roster) IDs() []domain.ParticipantID {
	return slices.Sorted(maps.Keys(r))
}
