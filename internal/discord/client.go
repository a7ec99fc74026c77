package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/middleman-bot/internal/models"
)

const registerConcurrency = 4

// Client wraps a discordgo session for the REST calls the bot makes.
type Client struct {
	session       *discordgo.Session
	applicationID string
	categoryID    string
}

func New(token, applicationID, roomCategoryID string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordgo.New: %w", err)
	}
	return &Client{session: session, applicationID: applicationID, categoryID: roomCategoryID}, nil
}

// Session exposes the underlying session for the gateway listener.
func (c *Client) Session() *discordgo.Session {
	return c.session
}

// ResolveUser returns the ID of the user with the given ID, or an error
// wrapping models.ErrIdentityResolution if no such user exists.
func (c *Client) ResolveUser(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", models.ErrIdentityResolution
	}
	user, err := c.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrIdentityResolution, err)
	}
	return user.ID, nil
}

// CreateDealRoom creates a text channel that only the buyer, seller and
// mediator can see. The mediator may also manage messages.
func (c *Client) CreateDealRoom(ctx context.Context, guildID string, deal models.Deal) (string, error) {
	data := discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("deal-%d", deal.ID),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             c.categoryID,
		PermissionOverwrites: RoomOverwrites(guildID, deal),
	}
	ch, err := c.session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create room for deal #%d: %w", deal.ID, err)
	}
	slog.Info("Created deal room", "deal", deal.ID, "channel", ch.ID)
	return ch.ID, nil
}

// RoomOverwrites hides the channel from @everyone (whose role ID is the guild
// ID) and opens it to the three parties.
func RoomOverwrites(guildID string, deal models.Deal) []*discordgo.PermissionOverwrite {
	participant := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)
	return []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: int64(discordgo.PermissionViewChannel)},
		{ID: deal.Buyer, Type: discordgo.PermissionOverwriteTypeMember, Allow: participant},
		{ID: deal.Seller, Type: discordgo.PermissionOverwriteTypeMember, Allow: participant},
		{ID: deal.Mediator, Type: discordgo.PermissionOverwriteTypeMember, Allow: participant | int64(discordgo.PermissionManageMessages)},
	}
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// FindChannelByName returns the ID of the first channel named exactly name,
// or "" if there is none.
func (c *Client) FindChannelByName(ctx context.Context, guildID, name string) (string, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to list channels of guild %s: %w", guildID, err)
	}
	for _, ch := range channels {
		if ch.Name == name {
			return ch.ID, nil
		}
	}
	return "", nil
}

// FindRoleByName returns the ID of the first role whose name contains substr,
// case-insensitively, or "" if there is none.
func (c *Client) FindRoleByName(ctx context.Context, guildID, substr string) (string, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to list roles of guild %s: %w", guildID, err)
	}
	needle := strings.ToLower(substr)
	for _, r := range roles {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			return r.ID, nil
		}
	}
	return "", nil
}

// GuildIDs lists every guild the bot belongs to.
func (c *Client) GuildIDs(ctx context.Context) ([]string, error) {
	var ids []string
	after := ""
	for {
		page, err := c.session.UserGuilds(200, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list guilds: %w", err)
		}
		for _, g := range page {
			ids = append(ids, g.ID)
		}
		if len(page) < 200 {
			return ids, nil
		}
		after = page[len(page)-1].ID
	}
}

// RegisterCommands declares commands in each guild. A failure in one guild is
// logged and does not stop the others. It returns the number of guilds that
// were registered successfully.
func (c *Client) RegisterCommands(ctx context.Context, guildIDs []string, commands []*discordgo.ApplicationCommand) int {
	results := make([]bool, len(guildIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(registerConcurrency)
	for i, guildID := range guildIDs {
		g.Go(func() error {
			_, err := c.session.ApplicationCommandBulkOverwrite(c.applicationID, guildID, commands, discordgo.WithContext(gctx))
			if err != nil {
				slog.Warn("Failed to register commands", "guild", guildID, "error", err)
				return nil
			}
			slog.Info("Commands registered", "guild", guildID)
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	registered := 0
	for _, ok := range results {
		if ok {
			registered++
		}
	}
	return registered
}
