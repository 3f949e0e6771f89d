// Command roombroker starts the multiplayer room broker.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the WebSocket endpoint, REST
//     introspection, Prometheus metrics and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal broker if none is available
//
// Flags control host/port, the client page and word list directories, logging,
// and optional ngrok tunneling for easy external access during playtests. Every
// flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/roombroker/api"
	"github.com/wricardo/mcp-training/roombroker/game/identity"
	"github.com/wricardo/mcp-training/roombroker/game/naming"
	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/game/service"
	"github.com/wricardo/mcp-training/roombroker/metrics"
	"github.com/wricardo/mcp-training/roombroker/transport/mcp"
	"github.com/wricardo/mcp-training/roombroker/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Room Broker"
)

// config is the resolved set of flags
type config struct {
	Host        string
	Port        int
	StaticDir   string
	NamesDir    string
	Names       string
	Debug       bool
	LogFormat   string
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (c config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// main loads .env, then runs the command line
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. The root action runs the server.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "roombroker",
		Usage:   "Relay multiplayer game events between players grouped into rooms",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Value:   "static",
				Usage:   "Directory holding the browser client (empty disables static files)",
				Sources: cli.EnvVars("STATIC_DIR"),
			},
			&cli.StringFlag{
				Name:    "names-dir",
				Usage:   "Directory of JSON word lists for room names (built-in list when empty)",
				Sources: cli.EnvVars("NAMES_DIR"),
			},
			&cli.StringFlag{
				Name:    "names",
				Value:   "words",
				Usage:   "Word list to load from --names-dir",
				Sources: cli.EnvVars("NAMES"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging and registry invariant checks",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format: text or json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromCommand(cmd)
			return runServer(ctx, cfg, newLogger(cfg, os.Stderr))
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with WebSocket, REST, metrics and MCP endpoint (default)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := configFromCommand(cmd)
					return runServer(ctx, cfg, newLogger(cfg, os.Stderr))
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server against a running broker, or an internal one",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := configFromCommand(cmd)
					return runStdioMCP(ctx, cfg, newLogger(cfg, os.Stderr))
				},
			},
		},
	}
}

func configFromCommand(cmd *cli.Command) config {
	return config{
		Host:        cmd.String("host"),
		Port:        cmd.Int("port"),
		StaticDir:   cmd.String("static-dir"),
		NamesDir:    cmd.String("names-dir"),
		Names:       cmd.String("names"),
		Debug:       cmd.Bool("debug"),
		LogFormat:   cmd.String("log-format"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

// newLogger writes to w; stdout is reserved for the MCP stdio transport
func newLogger(cfg config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "roombroker")
}

// broker is the fully wired application
type broker struct {
	identities *identity.Registry
	rooms      *room.Registry
	hub        *websocket.Hub
	service    service.SessionService
	metrics    *metrics.Metrics
	handler    http.Handler
}

// newBroker wires registries, transport and HTTP routes. The hub is not
// started yet.
func newBroker(cfg config, logger *slog.Logger) (*broker, error) {
	names, err := nameSource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load room names: %w", err)
	}

	var roomOpts []room.Option
	if cfg.Debug {
		roomOpts = append(roomOpts, room.WithInvariantChecks())
	}

	b := &broker{
		identities: identity.NewRegistry(),
		rooms:      room.NewRegistry(names, roomOpts...),
		hub:        websocket.NewHub(logger.With("component", "websocket")),
		metrics:    metrics.New(),
	}
	b.metrics.TrackGauges(b.identities.Count, b.rooms.Count)

	b.service = service.NewSessionService(b.identities, b.rooms, b.hub,
		service.WithLogger(logger.With("component", "session")),
		service.WithMetrics(b.metrics),
	)
	b.hub.SetHandler(b.service)

	apiOpts := []api.Option{
		api.WithLogger(logger.With("component", "api")),
		api.WithMetricsHandler(b.metrics.Handler()),
	}
	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			apiOpts = append(apiOpts, api.WithStaticDir(cfg.StaticDir))
		} else {
			logger.Warn("Static directory not found, client page disabled", "dir", cfg.StaticDir)
		}
	}
	apiServer := api.NewServer(b.service, b.hub, apiOpts...)

	// MCP over HTTP calls back into this server's REST API
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", cfg.addr()))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	b.handler = mainRouter

	return b, nil
}

// nameSource picks the built-in vocabularies or a list from --names-dir
func nameSource(cfg config, logger *slog.Logger) (room.NameSource, error) {
	if cfg.NamesDir == "" {
		return naming.NewGenerator(naming.DefaultWords()), nil
	}

	loader, err := naming.NewLoader(cfg.NamesDir)
	if err != nil {
		return nil, err
	}
	words, err := loader.Load(cfg.Names)
	if err != nil {
		if errors.Is(err, naming.ErrWordsNotFound) {
			available, _ := loader.List()
			return nil, fmt.Errorf("word list %q not in %s (available: %s): %w",
				cfg.Names, cfg.NamesDir, strings.Join(available, ", "), err)
		}
		return nil, err
	}

	logger.Info("Loaded room name vocabulary", "list", cfg.Names,
		"adjectives", len(words.Adjectives), "animals", len(words.Animals))
	return naming.NewGenerator(words), nil
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServer serves the broker until SIGINT/SIGTERM. If ngrok is enabled it
// also provisions a public tunnel.
func runServer(ctx context.Context, cfg config, logger *slog.Logger) error {
	logger.Info("Starting", "app", AppName, "version", Version, "mode", "server")

	b, err := newBroker(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go b.hub.Run(ctx)

	addr := cfg.addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           b.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("Endpoints",
			"websocket", fmt.Sprintf("ws://%s/ws", addr),
			"rest", fmt.Sprintf("http://%s/api/rooms", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
			stop()
		}
	}()

	if cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTunnel(ctx, cfg, b.handler, logger)
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	logger.Info("Server stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// runTunnel serves handler through ngrok until ctx is done
func runTunnel(ctx context.Context, cfg config, handler http.Handler, logger *slog.Logger) {
	if cfg.NgrokAuth == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("Starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("Using custom ngrok domain", "domain", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", "err", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("Failed to close ngrok tunnel", "err", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("Ngrok tunnel established", "url", ngrokURL,
		"websocket", strings.Replace(ngrokURL, "http", "ws", 1)+"/ws")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("Ngrok server error", "err", err)
	}
	logger.Info("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses a broker already listening
// on the configured address; otherwise it starts an internal one on a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cfg config, logger *slog.Logger) error {
	externalURL := fmt.Sprintf("http://%s", cfg.addr())
	baseURL := externalURL

	logger.Info("Checking for external broker", "url", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil {
		resp.Body.Close()
	}
	if err == nil && resp.StatusCode < 500 {
		logger.Info("External broker found, using it for MCP", "url", externalURL)
	} else {
		logger.Info("No external broker found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()

		b, err := newBroker(cfg, logger)
		if err != nil {
			listener.Close()
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go b.hub.Run(ctx)

		httpServer := &http.Server{Handler: b.handler}
		defer httpServer.Close()

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("Internal HTTP server error", "err", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
		logger.Info("Internal HTTP server started", "addr", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
