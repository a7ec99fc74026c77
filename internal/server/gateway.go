package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// RunGateway opens the gateway connection and answers interactions until ctx
// is cancelled.
func (s *Server) RunGateway(ctx context.Context, session *discordgo.Session) error {
	session.Identify.Intents = discordgo.IntentsGuilds

	removeReady := session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Logged in to gateway", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	removeInteraction := session.AddHandler(func(sess *discordgo.Session, ic *discordgo.InteractionCreate) {
		hctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		resp := s.handle(hctx, ic.Interaction)
		if err := sess.InteractionRespond(ic.Interaction, resp, discordgo.WithContext(hctx)); err != nil {
			slog.Error("Failed to respond to interaction", "id", ic.ID, "error", err)
		}
	})
	defer removeReady()
	defer removeInteraction()

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	<-ctx.Done()
	slog.Info("Closing gateway connection")
	return session.Close()
}
