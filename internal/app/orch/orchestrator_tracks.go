package orch

import (
	"fmt"

	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

// AddTrack records a track published by sid and announces it to the others.
// A repeated announcement of a known track is ignored.
func (o *Orchestrator) AddTrack(sid core.SessionID, info domain.TrackInfo) error {
	if info.ID == "" || !info.Kind.Valid() {
		return fmt.Errorf("invalid track %q of kind %q", info.ID, info.Kind)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	conf, ok := o.conferenceOf(sid)
	if !ok {
		return domain.ErrNotEntered
	}
	info.ParticipantID = domain.ParticipantID(sid)
	if !conf.AddTrack(sid, info) {
		return nil
	}
	o.broadcast(conf, sid, wire.TrackFrame(wire.TypeTrackAdded, info), false)
	return nil
}

func (o *Orchestrator) RemoveTrack(sid core.SessionID, id domain.TrackID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	conf, ok := o.conferenceOf(sid)
	if !ok {
		return domain.ErrNotEntered
	}
	info, ok := conf.RemoveTrack(sid, id)
	if !ok {
		return nil
	}
	o.broadcast(conf, sid, wire.TrackFrame(wire.TypeTrackRemoved, info), false)
	return nil
}

func (o *Orchestrator) MuteTrack(sid core.SessionID, id domain.TrackID, muted bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	conf, ok := o.conferenceOf(sid)
	if !ok {
		return domain.ErrNotEntered
	}
	info, ok := conf.SetTrackMuted(sid, id, muted)
	if !ok {
		return nil
	}
	o.broadcast(conf, sid, wire.TrackFrame(wire.TypeTrackMuted, info), false)
	return nil
}
