package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/session"
	"github.com/dkeye/vspace/internal/app/space"
	"github.com/dkeye/vspace/internal/auth"
)

func TestReplDrivesSpace(t *testing.T) {
	ctx := context.Background()
	tok, err := auth.NewJWTService("k", time.Hour).Generate("alice", "")
	require.NoError(t, err)

	conf := session.NewConference(loopback.NewHub(), nil)
	sp := space.New(conf, peer.NewSelf(loopback.NewDevices()), consoleVisual{}, space.Config{Token: tok, SpawnRetryInterval: time.Hour})
	require.NoError(t, sp.Enter(ctx, "demo"))
	t.Cleanup(func() { _ = sp.Exit(ctx) })
	sp.SpawnAvatar(ctx, string(conf.MyUserID()))

	var out bytes.Buffer
	input := strings.Join([]string{
		"room enter demo-desk",
		"mic on",
		"mute",
		"spawned",
		"bogus",
		"quit",
		"room exit demo-desk",
	}, "\n")
	require.NoError(t, newRepl(sp, strings.NewReader(input), &out).run(ctx))

	assert.Contains(t, out.String(), `unknown command "bogus"`)
	require.Eventually(t, func() bool { return conf.Rooms().Has("demo-desk", conf.MyUserID()) }, 2*time.Second, 5*time.Millisecond)
	require.NotNil(t, sp.Self.Audio())
	assert.True(t, sp.Self.Audio().Muted())
	assert.False(t, sp.Spawning())

	out.Reset()
	require.NoError(t, newRepl(sp, strings.NewReader("who\n"), &out).run(ctx))
	assert.Contains(t, out.String(), "room demo-desk")
	assert.Contains(t, out.String(), "(alice)")
}
