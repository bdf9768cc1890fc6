package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dkeye/vspace/internal/metrics"
)

func TestSessionCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewSession(reg)

	m.Command("ENTER_ROOM", metrics.ResultApplied)
	m.Command("ENTER_ROOM", metrics.ResultApplied)
	m.Participants(3)
	m.StageChanged()

	n, err := testutil.GatherAndCount(reg, "vspace_session_commands_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestServerCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewServer(reg)
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.Frame("join")

	n, err := testutil.GatherAndCount(reg, "vspace_server_connections", "vspace_server_frames_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var s *metrics.Session
	var srv *metrics.Server
	assert.NotPanics(t, func() {
		s.Command("TAKE_STAGE", metrics.ResultIgnored)
		s.Participants(1)
		s.Rooms(1)
		s.StageChanged()
		srv.ConnOpened()
		srv.ConnClosed()
		srv.Frame("ping")
	})
}
