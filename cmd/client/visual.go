package main

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/vspace/internal/core"
)

// consoleVisual stands in for the rendered world: requests are logged and
// spawn acknowledgements are typed back at the prompt.
type consoleVisual struct{}

func (consoleVisual) SetDisplayName(name string) error {
	log.Info().Str("module", "visual").Str("name", name).Msg("display name")
	return nil
}

func (consoleVisual) SpawnAvatar(req core.SpawnRequest) error {
	log.Info().Str("module", "visual").Str("user", req.UserID).Str("avatar", req.AvatarURL).Msg("spawn avatar requested")
	return nil
}
