package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

type ConferenceManagerImpl struct {
	mu    sync.RWMutex
	confs map[domain.ConferenceName]core.ConferenceService
}

func NewConferenceManager() core.ConferenceManager {
	return &ConferenceManagerImpl{confs: make(map[domain.ConferenceName]core.ConferenceService)}
}

func (f *ConferenceManagerImpl) GetOrCreate(name domain.ConferenceName) core.ConferenceService {
	f.mu.RLock()
	conf, ok := f.confs[name]
	f.mu.RUnlock()
	if ok {
		return conf
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if conf, ok = f.confs[name]; ok {
		return conf
	}
	conf = core.NewConferenceService(name)
	f.confs[name] = conf
	return conf
}

func (f *ConferenceManagerImpl) Get(name domain.ConferenceName) (core.ConferenceService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	conf, ok := f.confs[name]
	return conf, ok
}

func (f *ConferenceManagerImpl) List() []core.ConferenceInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.ConferenceInfo, 0, len(f.confs))
	for name, c := range f.confs {
		out = append(out, core.ConferenceInfo{Name: name, MemberCount: c.MemberCount()})
	}
	slices.SortFunc(out, func(a, b core.ConferenceInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func (f *ConferenceManagerImpl) StopIfEmpty(name domain.ConferenceName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.confs[name]; ok && c.MemberCount() == 0 {
		delete(f.confs, name)
	}
}
