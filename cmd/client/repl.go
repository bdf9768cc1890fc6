package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dkeye/vspace/internal/app/space"
	"github.com/dkeye/vspace/internal/core"
	"github.com/dkeye/vspace/internal/domain"
)

const helpText = `commands:
  who                           roster, rooms and stage
  room enter|exit <name>        enter or leave a sub-room
  zone private|group enter|exit <id>
  stage on|off                  step onto or off the stage
  mic on|off                    create or drop the microphone track
  mute | unmute                 toggle the microphone
  video camera|screen|off       switch the video source
  spawned <id>                  acknowledge the avatar spawn
  quit`

var errQuit = errors.New("quit")

type repl struct {
	sp  *space.Space
	in  io.Reader
	out io.Writer
}

func newRepl(sp *space.Space, in io.Reader, out io.Writer) *repl {
	return &repl{sp: sp, in: in, out: out}
}

func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := r.exec(ctx, strings.Fields(line))
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(r.out, "error:", err)
			}
		}
	}
}

func (r *repl) exec(ctx context.Context, f []string) error {
	if len(f) == 0 {
		return nil
	}
	conf, self := r.sp.Conference, r.sp.Self
	arg := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}

	switch f[0] {
	case "help":
		fmt.Fprintln(r.out, helpText)
	case "quit", "exit":
		return errQuit
	case "who":
		r.who()
	case "room":
		room := domain.RoomName(arg(2))
		switch arg(1) {
		case "enter":
			return conf.EnterRoom(room)
		case "exit":
			return conf.ExitRoom(room)
		}
		return fmt.Errorf("usage: room enter|exit <name>")
	case "zone":
		state := core.ZoneEnter
		if arg(2) == "exit" {
			state = core.ZoneExit
		}
		ev := core.ZoneEvent{State: state, ID: arg(3)}
		switch arg(1) {
		case "private":
			return r.sp.OnPrivateZone(ev)
		case "group":
			return r.sp.OnGroupZone(ev)
		}
		return fmt.Errorf("usage: zone private|group enter|exit <id>")
	case "stage":
		return r.sp.OnStageZone(arg(1) == "on")
	case "mic":
		if arg(1) == "off" {
			return self.SetAudio(ctx, nil)
		}
		t, err := self.CreateAudio(ctx, "")
		if err != nil {
			return err
		}
		return self.SetAudio(ctx, t)
	case "mute", "unmute":
		t := self.Audio()
		if t == nil {
			return errors.New("no microphone track")
		}
		if f[0] == "mute" {
			return t.Mute()
		}
		return t.Unmute()
	case "video":
		if arg(1) == "off" {
			return self.SetVideo(ctx, nil)
		}
		_, err := self.ChangeVideoMode(ctx, domain.VideoMode(arg(1)))
		return err
	case "spawned":
		id := arg(1)
		if id == "" {
			id = string(conf.MyUserID())
		}
		if !r.sp.AckSpawn(core.SpawnResult{ID: id, State: core.SpawnSuccess}) {
			return errors.New("no matching spawn pending")
		}
	default:
		return fmt.Errorf("unknown command %q, try help", f[0])
	}
	return nil
}

func (r *repl) who() {
	conf := r.sp.Conference
	fmt.Fprintf(r.out, "me: %s (%s)\n", conf.MyUserID(), conf.DisplayName())
	for _, id := range conf.Participants().IDs() {
		p, _ := conf.Participant(id)
		fmt.Fprintf(r.out, "  %s %q audio=%t video=%t\n", p.ID, p.DisplayName, p.Audio != nil, p.Video != nil)
	}
	rooms := conf.Rooms()
	for _, name := range rooms.Names() {
		fmt.Fprintf(r.out, "room %s: %v\n", name, rooms.Members(name))
	}
	if occ := conf.Occupier(); occ != nil {
		fmt.Fprintf(r.out, "stage: %s\n", occ.ID)
	}
	fmt.Fprintf(r.out, "current room: %q, presenters: %d\n", conf.CurrentRoom(), len(r.sp.Presenters()))
}
