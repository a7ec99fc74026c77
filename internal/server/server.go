package server

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pauljones0/middleman-bot/internal/models"
	"github.com/pauljones0/middleman-bot/internal/processor"
)

// DealStats is the read side of the deal store reported by /health.
type DealStats interface {
	List() []models.Deal
	NextID() int
}

// Server serves the interactions endpoint, health and metrics.
type Server struct {
	processor processor.Processor
	stats     DealStats
	publicKey ed25519.PublicKey
	timeout   time.Duration
}

type healthResponse struct {
	Status string                `json:"status"`
	NextID int                   `json:"nextId,omitempty"`
	Deals  map[models.Status]int `json:"deals,omitempty"`
}

// New builds a Server. publicKeyHex may be empty, in which case the
// interactions endpoint is not mounted. stats may be nil.
func New(p processor.Processor, stats DealStats, publicKeyHex string, timeout time.Duration) (*Server, error) {
	s := &Server{processor: p, stats: stats, timeout: timeout}
	if publicKeyHex != "" {
		key, err := hex.DecodeString(publicKeyHex)
		if err != nil || len(key) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid DISCORD_PUBLIC_KEY: must be %d hex-encoded bytes", ed25519.PublicKeySize)
		}
		s.publicKey = key
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	if s.publicKey != nil {
		mux.HandleFunc("POST /interactions", s.InteractionsHandler)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.stats != nil {
		resp.NextID = s.stats.NextID()
		resp.Deals = map[models.Status]int{
			models.StatusPending:   0,
			models.StatusActive:    0,
			models.StatusCompleted: 0,
		}
		for _, d := range s.stats.List() {
			resp.Deals[d.Status]++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

// InteractionsHandler answers interactions delivered over HTTP. Requests
// without a valid Ed25519 signature are rejected with 401.
func (s *Server) InteractionsHandler(w http.ResponseWriter, r *http.Request) {
	if !discordgo.VerifyInteraction(r, s.publicKey) {
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var interaction discordgo.Interaction
	if err := json.NewDecoder(r.Body).Decode(&interaction); err != nil {
		slog.Warn("Failed to decode interaction", "error", err)
		http.Error(w, "invalid interaction", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	resp := s.handle(ctx, &interaction)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write interaction response", "error", err)
	}
}

// handle runs the processor and turns a panic into an ephemeral error so a
// single bad interaction cannot take the bot down.
func (s *Server) handle(ctx context.Context, i *discordgo.Interaction) (resp *discordgo.InteractionResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Panic while handling interaction", "panic", rec, "id", i.ID)
			resp = &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "Something went wrong. Please try again later.",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			}
		}
	}()
	return s.processor.Handle(ctx, i)
}
