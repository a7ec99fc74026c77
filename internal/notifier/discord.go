package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/pauljones0/middleman-bot/internal/metrics"
	"github.com/pauljones0/middleman-bot/internal/models"
	"github.com/pauljones0/middleman-bot/internal/util"
)

// ErrNoTarget is returned when a broadcast channel cannot be found.
var ErrNoTarget = errors.New("target channel not found")

// API is the slice of the Discord platform the notifier needs.
type API interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error)
	FindChannelByName(ctx context.Context, guildID, name string) (string, error)
	FindRoleByName(ctx context.Context, guildID, substr string) (string, error)
}

// Targets binds the broadcast channels and the middleman role. Explicit IDs
// win; names are looked up per guild when an ID is not configured.
type Targets struct {
	RequestsChannelID    string
	RequestsChannelName  string
	CompletedChannelID   string
	CompletedChannelName string
	MiddlemanRoleID      string
	MiddlemanRoleMatch   string
}

type Client struct {
	api        API
	targets    Targets
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

func New(api API, targets Targets, perSecond float64, maxRetries int) *Client {
	return &Client{
		api:        api,
		targets:    targets,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

// AnnounceRequest posts a claimable request to the requests channel.
func (c *Client) AnnounceRequest(ctx context.Context, guildID string, deal models.Deal) error {
	channelID, err := c.resolveChannel(ctx, guildID, c.targets.RequestsChannelID, c.targets.RequestsChannelName)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("requests").Inc()
		return err
	}

	msg := &discordgo.MessageSend{
		Content:    c.roleMention(ctx, guildID),
		Embeds:     []*discordgo.MessageEmbed{RequestEmbed(deal)},
		Components: ClaimComponents(deal.ID),
	}
	if err := c.send(ctx, channelID, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues("requests").Inc()
		return fmt.Errorf("failed to announce deal #%d: %w", deal.ID, err)
	}
	return nil
}

// PostRoomSummary greets the three parties inside the deal room.
func (c *Client) PostRoomSummary(ctx context.Context, deal models.Deal) error {
	if deal.Room == "" {
		return fmt.Errorf("deal #%d: %w", deal.ID, ErrNoTarget)
	}
	msg := &discordgo.MessageSend{
		Content: RoomContent(deal),
		Embeds:  []*discordgo.MessageEmbed{RoomEmbed(deal)},
	}
	if err := c.send(ctx, deal.Room, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues("room").Inc()
		return fmt.Errorf("failed to post summary for deal #%d: %w", deal.ID, err)
	}
	return nil
}

// AnnounceCompletion posts the completed deal to the completed-deals channel.
func (c *Client) AnnounceCompletion(ctx context.Context, guildID string, deal models.Deal) error {
	channelID, err := c.resolveChannel(ctx, guildID, c.targets.CompletedChannelID, c.targets.CompletedChannelName)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("completed").Inc()
		return err
	}
	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{CompletedEmbed(deal)}}
	if err := c.send(ctx, channelID, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues("completed").Inc()
		return fmt.Errorf("failed to announce completion of deal #%d: %w", deal.ID, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	return util.RetryWithBackoff(ctx, c.maxRetries, c.backoff, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		_, err := c.api.SendMessage(ctx, channelID, msg)
		if isPermanent(err) {
			return util.Permanent(err)
		}
		return err
	})
}

func (c *Client) resolveChannel(ctx context.Context, guildID, id, name string) (string, error) {
	if id != "" {
		return id, nil
	}
	if guildID == "" || name == "" {
		return "", fmt.Errorf("channel %q: %w", name, ErrNoTarget)
	}
	channelID, err := c.api.FindChannelByName(ctx, guildID, name)
	if err != nil {
		return "", fmt.Errorf("failed to look up channel %q: %w", name, err)
	}
	if channelID == "" {
		return "", fmt.Errorf("channel %q: %w", name, ErrNoTarget)
	}
	return channelID, nil
}

// roleMention pings the middleman role, or @here when there is none.
func (c *Client) roleMention(ctx context.Context, guildID string) string {
	if c.targets.MiddlemanRoleID != "" {
		return RoleMention(c.targets.MiddlemanRoleID)
	}
	if guildID != "" && c.targets.MiddlemanRoleMatch != "" {
		roleID, err := c.api.FindRoleByName(ctx, guildID, c.targets.MiddlemanRoleMatch)
		if err == nil && roleID != "" {
			return RoleMention(roleID)
		}
	}
	return "@here"
}

// isPermanent reports Discord REST errors that a retry cannot fix.
func isPermanent(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	code := restErr.Response.StatusCode
	return code >= 400 && code < 500 && code != 429
}
