package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/game/service"
	"golang.org/x/sync/errgroup"
)

// scenario describes one scripted match
type scenario struct {
	URL     string
	Players int
	Syncs   int
}

// report summarizes a finished match
type report struct {
	Room     string
	Players  int
	Sent     int
	Received int
	Elapsed  time.Duration
}

// run seats Players bots in a fresh room, starts the game, and has every bot
// send Syncs entity updates. Each bot must receive every other bot's updates.
func run(ctx context.Context, sc scenario, logger *slog.Logger) (report, error) {
	if sc.Players < 1 || sc.Players > room.MaxPlayers {
		return report{}, fmt.Errorf("players must be between 1 and %d, got %d", room.MaxPlayers, sc.Players)
	}

	start := time.Now()
	rep := report{Players: sc.Players}

	bots := make([]*Bot, 0, sc.Players)
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	for i := 0; i < sc.Players; i++ {
		b, err := Dial(ctx, sc.URL, fmt.Sprintf("bot-%d", i+1), logger)
		if err != nil {
			return rep, err
		}
		bots = append(bots, b)

		if err := b.Hello(ctx); err != nil {
			return rep, err
		}
	}

	owner := bots[0]
	rm, err := owner.CreateRoom(ctx)
	if err != nil {
		return rep, err
	}
	rep.Room = rm.ID
	logger.Info("Room created", "room", rm.ID, "owner", owner.Player)

	for _, b := range bots[1:] {
		rooms, err := b.ListRooms(ctx)
		if err != nil {
			return rep, err
		}
		if !listed(rooms, rm.ID) {
			return rep, fmt.Errorf("%s: room %s missing from list-rooms", b.Name, rm.ID)
		}

		if _, err := b.JoinRoom(ctx, rm.ID); err != nil {
			return rep, err
		}
		logger.Info("Player joined", "room", rm.ID, "bot", b.Name, "slot", b.Slot)
	}

	if sc.Players > 1 {
		if _, err := owner.WaitForPlayers(ctx, sc.Players); err != nil {
			return rep, err
		}
	}

	if err := owner.StartGame(ctx); err != nil {
		return rep, err
	}
	logger.Info("Game started", "room", rm.ID)

	var received atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		g.Go(func() error {
			if b != owner {
				if _, err := b.Expect(gctx, service.EventGameStarted); err != nil {
					return err
				}
			}

			for seq := 1; seq <= sc.Syncs; seq++ {
				if err := b.Send(service.EventSyncEntity, map[string]any{"bot": b.Name, "seq": seq}); err != nil {
					return err
				}
			}

			want := (sc.Players - 1) * sc.Syncs
			for n := 0; n < want; n++ {
				if _, err := b.Expect(gctx, service.EventEntitySynced); err != nil {
					return err
				}
				received.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	rep.Sent = sc.Players * sc.Syncs
	rep.Received = int(received.Load())
	rep.Elapsed = time.Since(start)
	return rep, err
}

func listed(rooms []room.Room, id string) bool {
	for _, r := range rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}
