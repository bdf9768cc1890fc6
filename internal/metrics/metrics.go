// Package metrics exports session and server counters to Prometheus.
// A nil collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vspace"

// Command results.
const (
	ResultApplied = "applied"
	ResultIgnored = "ignored"
	ResultSent    = "sent"
	ResultFailed  = "failed"
)

// Session collects client side conference metrics.
type Session struct {
	commands     *prometheus.CounterVec
	participants prometheus.Gauge
	rooms        prometheus.Gauge
	stageChanges prometheus.Counter
}

func NewSession(reg prometheus.Registerer) *Session {
	f := promauto.With(reg)
	return &Session{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Room and stage commands by tag and result",
		}, []string{"tag", "result"}),
		participants: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "participants",
			Help:      "Participants in the current roster",
		}),
		rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "rooms",
			Help:      "Non-empty sub-rooms",
		}),
		stageChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stage_changes_total",
			Help:      "Stage occupier changes",
		}),
	}
}

func (m *Session) Command(tag, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(tag, result).Inc()
}

func (m *Session) Participants(n int) {
	if m == nil {
		return
	}
	m.participants.Set(float64(n))
}

func (m *Session) Rooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

func (m *Session) StageChanged() {
	if m == nil {
		return
	}
	m.stageChanges.Inc()
}

// Server collects signalling server metrics.
type Server struct {
	connections prometheus.Gauge
	frames      *prometheus.CounterVec
}

func NewServer(reg prometheus.Registerer) *Server {
	f := promauto.With(reg)
	return &Server{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections",
			Help:      "Open signalling connections",
		}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "frames_total",
			Help:      "Inbound signalling frames by type",
		}, []string{"type"}),
	}
}

func (m *Server) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Server) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Server) Frame(typ string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(typ).Inc()
}
