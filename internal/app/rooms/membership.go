// Package rooms tracks which participants are in which sub-room.
package rooms

import (
	"maps"
	"slices"

	"github.com/dkeye/vspace/internal/domain"
)

type set map[domain.ParticipantID]struct{}

// Membership maps room names to participant sets. A value is never mutated
// once built; every operation returns the next value and whether it differs.
// Rooms never hold an empty set.
type Membership struct {
	rooms map[domain.RoomName]set
}

func (m Membership) clone() map[domain.RoomName]set {
	next := make(map[domain.RoomName]set, len(m.rooms)+1)
	maps.Copy(next, m.rooms)
	return next
}

func (m Membership) Has(room domain.RoomName, id domain.ParticipantID) bool {
	_, ok := m.rooms[room][id]
	return ok
}

// Enter adds id to room. Entering a room twice is a no-op.
func (m Membership) Enter(room domain.RoomName, id domain.ParticipantID) (Membership, bool) {
	if m.Has(room, id) {
		return m, false
	}
	next := m.clone()
	members := maps.Clone(next[room])
	if members == nil {
		members = make(set, 1)
	}
	members[id] = struct{}{}
	next[room] = members
	return Membership{rooms: next}, true
}

// Exit removes id from room; the room disappears with its last member.
func (m Membership) Exit(room domain.RoomName, id domain.ParticipantID) (Membership, bool) {
	if !m.Has(room, id) {
		return m, false
	}
	next := m.clone()
	members := maps.Clone(next[room])
	delete(members, id)
	if len(members) == 0 {
		delete(next, room)
	} else {
		next[room] = members
	}
	return Membership{rooms: next}, true
}

// Prune removes id from every room.
func (m Membership) Prune(id domain.ParticipantID) (Membership, bool) {
	out, changed := m, false
	for _, room := range m.Names() {
		var c bool
		out, c = out.Exit(room, id)
		changed = changed || c
	}
	return out, changed
}

// Names returns the non-empty rooms, sorted.
func (m Membership) Names() []domain.RoomName {
	return slices.Sorted(maps.Keys(m.rooms))
}

// Members returns the sorted members of room.
func (m Membership) Members(room domain.RoomName) []domain.ParticipantID {
	return slices.Sorted(maps.Keys(m.rooms[room]))
}

// RoomsOf returns the sorted rooms id is in. Under command reordering a
// remote participant can transiently be in more than one.
func (m Membership) RoomsOf(id domain.ParticipantID) []domain.RoomName {
	var out []domain.RoomName
	for _, room := range m.Names() {
		if m.Has(room, id) {
			out = append(out, room)
		}
	}
	return out
}

func (m Membership) Len() int { return len(m.rooms) }

// Map returns a copy as plain sorted slices.
func (m Membership) Map() map[domain.RoomName][]domain.ParticipantID {
	out := make(map[domain.RoomName][]domain.ParticipantID, len(m.rooms))
	for room := range m.rooms {
		out[room] = m.Members(room)
	}
	return out
}
