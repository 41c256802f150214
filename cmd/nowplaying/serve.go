package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/nowplaying"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/transport/httpapi"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/transport/socketio"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the now-playing API and push updates to displays",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP server port")
	serveCmd.Flags().DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "How long downloaded artwork is kept")
	serveCmd.Flags().DurationVar(&cfg.WatchInterval, "watch-interval", cfg.WatchInterval, "Playback watch interval")
	serveCmd.Flags().DurationVar(&cfg.RenderTimeout, "render-timeout", cfg.RenderTimeout, "Upper bound for one render and its artwork downloads")
}

// app bundles the wired components shared by serve and fetch.
type app struct {
	client  *kodi.Client
	cache   *artwork.SessionCache
	service *nowplaying.Service
}

func newApp() (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := kodi.NewClient(cfg.KodiHost,
		kodi.WithCredentials(cfg.KodiUser, cfg.KodiPass),
		kodi.WithTimeout(cfg.RPCTimeout),
	)
	cache := artwork.NewSessionCache(cfg.SessionTTL)
	pipeline := artwork.NewPipeline(artwork.NewKodiFiles(client), cache, artwork.Config{
		BaseURL:       cfg.KodiHost,
		RemoteHost:    cfg.KodiHostname(),
		Username:      cfg.KodiUser,
		Password:      cfg.KodiPass,
		CacheDir:      cfg.CacheDir,
		RemoteSchemes: cfg.RemoteSchemes,
		FetchTimeout:  cfg.FetchTimeout,
		ProbeTimeout:  cfg.ProbeTimeout,
	})
	service := nowplaying.NewService(client, pipeline,
		nowplaying.WithCheckInterval(cfg.CheckInterval),
	)

	return &app{client: client, cache: cache, service: service}, nil
}

func runServe(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", version.GetInfo().String())
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("kodi_host", cfg.KodiHost).
		Bool("auth", cfg.KodiUser != "").
		Int("port", cfg.Port).
		Str("cache_dir", cfg.CacheDir).
		Dur("session_ttl", cfg.SessionTTL).
		Strs("remote_schemes", cfg.RemoteSchemes).
		Msg("Configuration")

	pingCtx, pingCancel := context.WithTimeout(parent, cfg.RPCTimeout)
	if err := a.client.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("Kodi not reachable yet")
	} else {
		log.Info().Msg("Kodi connection verified")
	}
	pingCancel()

	socketServer, err := socketio.NewServer(a.service,
		socketio.WithSessions(a.cache),
		socketio.WithRenderTimeout(cfg.RenderTimeout),
	)
	if err != nil {
		return err
	}
	defer socketServer.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	socketServer.StartWatcher(ctx, cfg.WatchInterval)

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketServer)
	httpapi.New(a.service, a.client, a.cache).Register(mux)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.Addr()).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	removed := a.cache.Clear()
	log.Info().Int("artwork_removed", removed).Msg("Server stopped")
	return nil
}
