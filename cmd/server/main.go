// PRIMA agent gateway: a role-aware conversational front end to the booking
// backend. A chat turn asks the language model for a reply, executes at most
// one permitted backend operation on its behalf, and narrates the result.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primaai/agent-gateway/internal/config"
	"github.com/primaai/agent-gateway/pkg/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	zerolog.SetGlobalLevel(srv.Config.Level())

	httpServer := &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      srv.Config.TurnTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		if err := srv.ShutdownFunc(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Component shutdown failed")
		}
	}()

	log.Info().
		Str("addr", httpServer.Addr).
		Str("version", srv.Config.Version).
		Msg("Agent gateway started")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	<-shutdownDone
}
