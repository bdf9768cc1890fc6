package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/vspace/internal/adapters/loopback"
	"github.com/dkeye/vspace/internal/adapters/redisbus"
	"github.com/dkeye/vspace/internal/adapters/rtc"
	"github.com/dkeye/vspace/internal/adapters/wsclient"
	"github.com/dkeye/vspace/internal/app/peer"
	"github.com/dkeye/vspace/internal/app/rooms"
	"github.com/dkeye/vspace/internal/app/session"
	"github.com/dkeye/vspace/internal/app/space"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/metrics"
)

var (
	joinSpace     string
	joinToken     string
	joinTransport string
	joinMedia     bool
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Enter a space and drive it from stdin",
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&joinSpace, "space", "", "space name (defaults to client.space)")
	joinCmd.Flags().StringVar(&joinToken, "token", "", "access token (defaults to client.token)")
	joinCmd.Flags().StringVar(&joinTransport, "transport", "", "ws, redis or loopback (defaults to client.transport)")
	joinCmd.Flags().BoolVar(&joinMedia, "media", false, "publish generated media over WebRTC (ws transport only)")
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func connectorFor(transport string) (core.Connector, error) {
	switch transport {
	case "ws":
		return &wsclient.Connector{
			URL:    cfg.Client.SignalURL,
			Media:  joinMedia,
			WebRTC: rtc.WebRTCConfig(cfg.Client.ICEURLs),
		}, nil
	case "redis":
		return redisbus.NewConnector(cfg.Client.RedisAddr), nil
	case "loopback":
		return loopback.NewHub(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	name := orDefault(joinSpace, cfg.Client.Space)
	transport := orDefault(joinTransport, cfg.Client.Transport)
	connector, err := connectorFor(transport)
	if err != nil {
		return err
	}

	var devices core.DeviceSource = loopback.NewDevices()
	if joinMedia {
		devices = rtc.NewDevices(name)
	}

	conf := session.NewConference(connector, metrics.NewSession(prometheus.NewRegistry()))
	self := peer.NewSelf(devices)
	sp := space.New(conf, self, consoleVisual{}, space.Config{
		Token:              orDefault(joinToken, cfg.Client.Token),
		AvatarURL:          cfg.Client.AvatarURL,
		SpawnRetryInterval: cfg.Client.SpawnRetryInterval,
	})

	conf.OnParticipantsChanged(func(r peer.Roster) {
		log.Info().Str("module", "client").Int("participants", len(r)).Msg("roster changed")
	})
	conf.OnRoomsChanged(func(m rooms.Membership) {
		log.Info().Str("module", "client").Strs("rooms", roomNames(m)).Msg("rooms changed")
	})
	conf.OnOccupierChanged(func(p *peer.Participant) {
		if p == nil {
			log.Info().Str("module", "client").Msg("stage is free")
			return
		}
		log.Info().Str("module", "client").Str("occupier", string(p.ID)).Msg("stage taken")
	})

	enterCtx, enterCancel := context.WithTimeout(ctx, cfg.Client.ConnectTimeout)
	err = sp.Enter(enterCtx, name)
	enterCancel()
	if err != nil {
		return fmt.Errorf("enter %q: %w", name, err)
	}
	defer func() {
		if err := sp.Exit(context.Background()); err != nil {
			log.Error().Err(err).Msg("exit")
		}
		_ = self.Close(context.Background())
	}()

	sp.SpawnAvatar(ctx, string(conf.MyUserID()))
	log.Info().Str("module", "client").Str("id", string(conf.MyUserID())).Str("space", name).Msg("joined; type help for commands")

	return newRepl(sp, os.Stdin, cmd.OutOrStdout()).run(ctx)
}

func roomNames(m rooms.Membership) []string {
	names := m.Names()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	return out
}
