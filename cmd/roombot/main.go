// Command roombot plays scripted matches against a running room broker. It
// connects a group of bots, seats them in one room, starts the game and
// checks that every entity update reaches every other player.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "roombot",
		Usage: "Smoke-test a room broker with scripted players",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "ws://localhost:8080/ws",
				Usage:   "Broker WebSocket URL",
				Sources: cli.EnvVars("ROOMBOT_URL"),
			},
			&cli.IntFlag{
				Name:  "players",
				Value: 4,
				Usage: "Players per match (1-4)",
			},
			&cli.IntFlag{
				Name:  "syncs",
				Value: 20,
				Usage: "Entity updates each player sends",
			},
			&cli.IntFlag{
				Name:  "matches",
				Value: 1,
				Usage: "Matches to play",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "Deadline for each match",
			},
			&cli.BoolFlag{
				Name:    "v",
				Aliases: []string{"verbose"},
				Usage:   "Log every frame",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := slog.LevelInfo
			if cmd.Bool("v") {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			sc := scenario{
				URL:     cmd.String("url"),
				Players: cmd.Int("players"),
				Syncs:   cmd.Int("syncs"),
			}

			logger.Info("Connecting to broker", "url", sc.URL)
			for i := 1; i <= cmd.Int("matches"); i++ {
				matchCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
				rep, err := run(matchCtx, sc, logger)
				cancel()

				logger.Info("Match finished", "match", i, "room", rep.Room, "players", rep.Players,
					"sent", rep.Sent, "received", rep.Received, "elapsed", rep.Elapsed)
				if err != nil {
					return fmt.Errorf("match %d: %w", i, err)
				}
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "roombot: %v\n", err)
		os.Exit(1)
	}
}
