package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModeGateway = "gateway"
	ModeHTTP    = "http"

	BackendFile      = "file"
	BackendFirestore = "firestore"
)

type Config struct {
	BotToken      string
	ApplicationID string
	PublicKey     string
	Mode          string
	Port          string
	GuildIDs      []string

	StoreBackend             string
	DealsFile                string
	ProjectID                string
	FirestoreCredentialsFile string
	FirestoreCollection      string
	FirestoreDocument        string

	RequestsChannelID    string
	RequestsChannelName  string
	CompletedChannelID   string
	CompletedChannelName string
	MiddlemanRoleID      string
	MiddlemanRoleMatch   string
	RoomCategoryID       string

	SendRate           float64
	SendRetries        int
	InteractionTimeout time.Duration
}

func Load() (*Config, error) {
	botToken := os.Getenv("DISCORD_BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN environment variable is required but not set")
	}

	applicationID := os.Getenv("DISCORD_APPLICATION_ID")
	if applicationID == "" {
		return nil, fmt.Errorf("DISCORD_APPLICATION_ID environment variable is required but not set")
	}

	mode := strings.ToLower(os.Getenv("INTERACTIONS_MODE"))
	if mode == "" {
		mode = ModeGateway
	}
	if mode != ModeGateway && mode != ModeHTTP {
		return nil, fmt.Errorf("invalid INTERACTIONS_MODE %q: must be %q or %q", mode, ModeGateway, ModeHTTP)
	}

	publicKey := os.Getenv("DISCORD_PUBLIC_KEY")
	if mode == ModeHTTP && publicKey == "" {
		return nil, fmt.Errorf("DISCORD_PUBLIC_KEY is required when INTERACTIONS_MODE is %q", ModeHTTP)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	storeBackend := strings.ToLower(os.Getenv("STORE_BACKEND"))
	if storeBackend == "" {
		storeBackend = BackendFile
	}
	if storeBackend != BackendFile && storeBackend != BackendFirestore {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", storeBackend, BackendFile, BackendFirestore)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if storeBackend == BackendFirestore && projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when STORE_BACKEND is %q", BackendFirestore)
	}

	sendRate := 5.0
	if v := os.Getenv("DISCORD_SEND_RATE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid DISCORD_SEND_RATE %q: must be a positive number", v)
		}
		sendRate = parsed
	}

	sendRetries := 2
	if v := os.Getenv("DISCORD_SEND_RETRIES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid DISCORD_SEND_RETRIES %q: must be a non-negative integer", v)
		}
		sendRetries = parsed
	}

	timeoutStr := os.Getenv("INTERACTION_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "30s"
	}
	interactionTimeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid INTERACTION_TIMEOUT %q: %w", timeoutStr, err)
	}

	return &Config{
		BotToken:      botToken,
		ApplicationID: applicationID,
		PublicKey:     publicKey,
		Mode:          mode,
		Port:          port,
		GuildIDs:      splitList(os.Getenv("DISCORD_GUILD_IDS")),

		StoreBackend:             storeBackend,
		DealsFile:                getenvDefault("DEALS_FILE", "deals.json"),
		ProjectID:                projectID,
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirestoreCollection:      getenvDefault("FIRESTORE_COLLECTION", "middleman"),
		FirestoreDocument:        getenvDefault("FIRESTORE_DOCUMENT", "state"),

		RequestsChannelID:    os.Getenv("REQUESTS_CHANNEL_ID"),
		RequestsChannelName:  getenvDefault("REQUESTS_CHANNEL_NAME", "mm-requests"),
		CompletedChannelID:   os.Getenv("COMPLETED_CHANNEL_ID"),
		CompletedChannelName: getenvDefault("COMPLETED_CHANNEL_NAME", "completed-deals"),
		MiddlemanRoleID:      os.Getenv("MIDDLEMAN_ROLE_ID"),
		MiddlemanRoleMatch:   getenvDefault("MIDDLEMAN_ROLE_MATCH", "middleman"),
		RoomCategoryID:       os.Getenv("DEAL_ROOM_CATEGORY_ID"),

		SendRate:           sendRate,
		SendRetries:        sendRetries,
		InteractionTimeout: interactionTimeout,
	}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
