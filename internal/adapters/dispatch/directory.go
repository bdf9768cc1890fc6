package dispatch

import (
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type entry struct {
	id     domain.ParticipantID
	name   string
	tracks map[domain.TrackID]*Track
}

func (e *entry) ID() domain.ParticipantID { return e.id }
func (e *entry) DisplayName() string      { return e.name }

func (e *entry) Tracks(kind domain.TrackKind) []core.TrackHandle {
	ids := slices.Sorted(maps.Keys(e.tracks))
	out := make([]core.TrackHandle, 0, len(ids))
	for _, id := range ids {
		if t := e.tracks[id]; t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// Directory is the transport's view of the other participants, kept in join order.
// Entries returned by Participants are copies.
type Directory struct {
	mu    sync.RWMutex
	byID  map[domain.ParticipantID]*entry
	order []domain.ParticipantID
}

func NewDirectory() *Directory {
	return &Directory{byID: make(map[domain.ParticipantID]*entry)}
}

// Join reports false when id is already present.
func (d *Directory) Join(id domain.ParticipantID, name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[id]; ok {
		return false
	}
	d.byID[id] = &entry{id: id, name: name, tracks: make(map[domain.TrackID]*Track)}
	d.order = append(d.order, id)
	return true
}

// Leave removes id and returns the tracks it still had.
func (d *Directory) Leave(id domain.ParticipantID) ([]*Track, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	delete(d.byID, id)
	d.order = slices.DeleteFunc(d.order, func(x domain.ParticipantID) bool { return x == id })
	return slices.Collect(maps.Values(e.tracks)), true
}

// AddTrack reports false when the owner is unknown.
func (d *Directory) AddTrack(t *Track) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[t.ParticipantID()]
	if !ok {
		return false
	}
	e.tracks[t.ID()] = t
	return true
}

func (d *Directory) RemoveTrack(owner domain.ParticipantID, id domain.TrackID) (*Track, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[owner]
	if !ok {
		return nil, false
	}
	t, ok := e.tracks[id]
	if ok {
		delete(e.tracks, id)
	}
	return t, ok
}

func (d *Directory) Track(owner domain.ParticipantID, id domain.TrackID) (*Track, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byID[owner]
	if !ok {
		return nil, false
	}
	t, ok := e.tracks[id]
	return t, ok
}

// FindTrack looks a track up by id alone.
func (d *Directory) FindTrack(id domain.TrackID) (*Track, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.byID {
		if t, ok := e.tracks[id]; ok {
			return t, true
		}
	}
	return nil, false
}

func (d *Directory) Has(id domain.ParticipantID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byID[id]
	return ok
}

func (d *Directory) Participants() []core.RemoteParticipant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.RemoteParticipant, 0, len(d.order))
	for _, id := range d.order {
		e := d.byID[id]
		out = append(out, &entry{id: e.id, name: e.name, tracks: maps.Clone(e.tracks)})
	}
	return out
}

// Reset forgets everybody and returns every track that was known.
func (d *Directory) Reset() []*Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	var tracks []*Track
	for _, e := range d.byID {
		tracks = append(tracks, slices.Collect(maps.Values(e.tracks))...)
	}
	d.byID = make(map[domain.ParticipantID]*entry)
	d.order = nil
	return tracks
}
