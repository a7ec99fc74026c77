package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/middleman-bot/internal/config"
	"github.com/pauljones0/middleman-bot/internal/discord"
	"github.com/pauljones0/middleman-bot/internal/notifier"
	"github.com/pauljones0/middleman-bot/internal/processor"
	"github.com/pauljones0/middleman-bot/internal/server"
	"github.com/pauljones0/middleman-bot/internal/storage"
)

func main() {
	slog.Info("Starting Middleman Bot...")
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing deal storage", "error", err)
		os.Exit(1)
	}
	defer closeBackend()
	store := storage.Open(ctx, backend)

	dc, err := discord.New(cfg.BotToken, cfg.ApplicationID, cfg.RoomCategoryID)
	if err != nil {
		slog.Error("Critical error initializing Discord client", "error", err)
		os.Exit(1)
	}

	registerCommands(ctx, dc, cfg.GuildIDs)

	n := notifier.New(dc, notifier.Targets{
		RequestsChannelID:    cfg.RequestsChannelID,
		RequestsChannelName:  cfg.RequestsChannelName,
		CompletedChannelID:   cfg.CompletedChannelID,
		CompletedChannelName: cfg.CompletedChannelName,
		MiddlemanRoleID:      cfg.MiddlemanRoleID,
		MiddlemanRoleMatch:   cfg.MiddlemanRoleMatch,
	}, cfg.SendRate, cfg.SendRetries)
	p := processor.New(store, dc, n)

	publicKey := ""
	if cfg.Mode == config.ModeHTTP {
		publicKey = cfg.PublicKey
	}
	srv, err := server.New(p, store, publicKey, cfg.InteractionTimeout)
	if err != nil {
		slog.Error("Critical error initializing server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.InteractionTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if cfg.Mode == config.ModeGateway {
		go func() {
			if err := srv.RunGateway(ctx, dc.Session()); err != nil {
				slog.Error("Gateway stopped with error", "error", err)
				stop()
			}
		}()
	}

	slog.Info("Listening on port", "port", cfg.Port, "mode", cfg.Mode)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	p.Wait()
	slog.Info("Server stopped.")
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, func(), error) {
	if cfg.StoreBackend == config.BackendFirestore {
		fb, err := storage.NewFirestoreBackend(ctx, storage.FirestoreOptions{
			ProjectID:       cfg.ProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
			Collection:      cfg.FirestoreCollection,
			Document:        cfg.FirestoreDocument,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using Firestore deal storage", "project", cfg.ProjectID)
		return fb, func() { fb.Close() }, nil
	}
	slog.Info("Using file deal storage", "path", cfg.DealsFile)
	return storage.NewFileBackend(cfg.DealsFile), func() {}, nil
}

// registerCommands declares the slash commands in the configured guilds, or
// in every guild the bot is in when none are configured.
func registerCommands(ctx context.Context, dc *discord.Client, guildIDs []string) {
	if len(guildIDs) == 0 {
		ids, err := dc.GuildIDs(ctx)
		if err != nil {
			slog.Warn("Failed to list guilds, skipping command registration", "error", err)
			return
		}
		guildIDs = ids
	}
	registered := dc.RegisterCommands(ctx, guildIDs, notifier.Commands())
	slog.Info("Command registration finished", "registered", registered, "guilds", len(guildIDs))
}
