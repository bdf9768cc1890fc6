package signal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/dkeye/vspace/internal/adapters/http"
	"github.com/dkeye/vspace/internal/adapters/signal"
	"github.com/dkeye/vspace/internal/adapters/wire"
	"github.com/dkeye/vspace/internal/app"
	"github.com/dkeye/vspace/internal/app/orch"
	"github.com/dkeye/vspace/internal/auth"
	"github.com/dkeye/vspace/internal/config"
	"github.com/dkeye/vspace/internal/domain"
	"github.com/dkeye/vspace/internal/metrics"
)

type server struct {
	url  string
	jwt  *auth.JWTService
	reg  *prometheus.Registry
	orch *orch.Orchestrator
}

func newServer(t *testing.T, limiter *signal.CommandRateLimiter) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	jwt := auth.NewJWTService("secret", time.Hour)
	reg := prometheus.NewRegistry()
	o := &orch.Orchestrator{
		Registry:    app.NewRegistry(),
		Conferences: app.NewConferenceManager(),
		Policy:      app.KickPolicy{},
	}
	ctrl := signal.NewSignalWSController(o, jwt, metrics.NewServer(reg), limiter, signal.Options{ReadLimit: 1 << 16})
	r := router.SetupRouter(ctx, &config.ServerConfig{Mode: "debug"}, ctrl, reg)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, jwt: jwt, reg: reg, orch: o}
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func (s *server) dial(t *testing.T, name string) *client {
	t.Helper()
	tok, err := s.jwt.Generate(name, "")
	require.NoError(t, err)
	u := "ws" + strings.TrimPrefix(s.url, "http") + "/api/ws/conference?token=" + tok
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return &client{t: t, ws: ws}
}

func (c *client) send(v any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(v))
}

// next reads frames until one of type typ arrives and decodes it into v.
func (c *client) next(typ string, v any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := c.ws.ReadMessage()
		require.NoError(c.t, err)
		got, err := wire.Decode(data, nil)
		require.NoError(c.t, err)
		if got == typ {
			_, err = wire.Decode(data, v)
			require.NoError(c.t, err)
			return
		}
	}
}

func (c *client) join(conf string) domain.ParticipantID {
	c.t.Helper()
	c.send(wire.Join{Type: wire.TypeJoin, Conference: domain.ConferenceName(conf)})
	var p wire.Participant
	c.next(wire.TypeConferenceJoined, &p)
	require.NotEmpty(c.t, p.ID)
	return p.ID
}

func TestRejectsInvalidToken(t *testing.T) {
	s := newServer(t, nil)
	u := "ws" + strings.TrimPrefix(s.url, "http") + "/api/ws/conference?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLateJoinerLearnsMembersAndTracks(t *testing.T) {
	s := newServer(t, nil)
	alice := s.dial(t, "alice")
	aliceID := alice.join("lobby")
	alice.send(wire.Track{Type: wire.TypeTrackAdd, ID: "a1", Kind: domain.KindAudio})
	require.Eventually(t, func() bool {
		conf, ok := s.orch.Conferences.Get("lobby")
		if !ok {
			return false
		}
		members := conf.MembersSnapshot()
		return len(members) == 1 && len(members[0].Tracks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	bob := s.dial(t, "bob")
	bob.send(wire.Join{Type: wire.TypeJoin, Conference: "lobby", Name: "Bobby"})

	var joined wire.Participant
	bob.next(wire.TypeConferenceJoined, &joined)
	var existing wire.Participant
	bob.next(wire.TypeParticipantJoined, &existing)
	assert.Equal(t, aliceID, existing.ID)
	assert.Equal(t, "alice", existing.Name)
	var track wire.Track
	bob.next(wire.TypeTrackAdded, &track)
	assert.Equal(t, domain.TrackID("a1"), track.ID)
	assert.Equal(t, aliceID, track.ParticipantID)

	var newcomer wire.Participant
	alice.next(wire.TypeParticipantJoined, &newcomer)
	assert.Equal(t, joined.ID, newcomer.ID)
	assert.Equal(t, "Bobby", newcomer.Name)
}

func TestCommandsReachEveryoneIncludingSender(t *testing.T) {
	s := newServer(t, nil)
	alice := s.dial(t, "alice")
	alice.join("lobby")
	bob := s.dial(t, "bob")
	bobID := bob.join("lobby")

	bob.send(wire.Command{Type: wire.TypeCommand, Tag: domain.TagEnterRoom, Value: string(bobID), Attributes: map[string]string{domain.AttrRoom: "r1"}})
	for _, c := range []*client{alice, bob} {
		var cmd wire.Command
		c.next(wire.TypeCommand, &cmd)
		assert.Equal(t, domain.TagEnterRoom, cmd.Tag)
		assert.Equal(t, bobID, cmd.From)
		assert.Equal(t, "r1", cmd.Attributes[domain.AttrRoom])
	}
	frames, err := testutil.GatherAndCount(s.reg, "vspace_server_frames_total")
	require.NoError(t, err)
	assert.Equal(t, 2, frames)
}

func TestLeaveRemovesTracksThenParticipant(t *testing.T) {
	s := newServer(t, nil)
	alice := s.dial(t, "alice")
	alice.join("lobby")
	bob := s.dial(t, "bob")
	bobID := bob.join("lobby")
	bob.send(wire.Track{Type: wire.TypeTrackAdd, ID: "b1", Kind: domain.KindVideo})

	var added wire.Track
	alice.next(wire.TypeTrackAdded, &added)
	bob.send(wire.Track{Type: wire.TypeTrackMute, ID: "b1", Muted: true})
	var muted wire.Track
	alice.next(wire.TypeTrackMuted, &muted)
	assert.True(t, muted.Muted)

	bob.send(wire.Envelope{Type: wire.TypeLeave})
	var left wire.Participant
	bob.next(wire.TypeConferenceLeft, &left)

	var removed wire.Track
	alice.next(wire.TypeTrackRemoved, &removed)
	assert.Equal(t, domain.TrackID("b1"), removed.ID)
	var gone wire.Participant
	alice.next(wire.TypeParticipantLeft, &gone)
	assert.Equal(t, bobID, gone.ID)
}

func TestDisconnectDropsEmptyConference(t *testing.T) {
	s := newServer(t, nil)
	alice := s.dial(t, "alice")
	alice.join("lobby")
	require.Len(t, s.orch.Conferences.List(), 1)

	require.NoError(t, alice.ws.Close())
	require.Eventually(t, func() bool { return len(s.orch.Conferences.List()) == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.orch.Registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCommandRateLimit(t *testing.T) {
	s := newServer(t, signal.NewCommandRateLimiter(1, time.Minute))
	alice := s.dial(t, "alice")
	alice.join("lobby")

	alice.send(wire.Command{Type: wire.TypeCommand, Tag: "PING"})
	var cmd wire.Command
	alice.next(wire.TypeCommand, &cmd)

	alice.send(wire.Command{Type: wire.TypeCommand, Tag: "PING"})
	var e wire.Error
	alice.next(wire.TypeError, &e)
	assert.Equal(t, "rate_limited", e.Error)
}

func TestPingAndUnknownFrames(t *testing.T) {
	s := newServer(t, nil)
	alice := s.dial(t, "alice")
	alice.send(wire.Envelope{Type: wire.TypePing})
	var pong wire.Envelope
	alice.next(wire.TypePong, &pong)

	alice.send(wire.Command{Type: wire.TypeCommand, Tag: "X"})
	var e wire.Error
	alice.next(wire.TypeError, &e)
	assert.Contains(t, e.Error, domain.ErrNotEntered.Error())
}
