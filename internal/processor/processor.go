package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/middleman-bot/internal/metrics"
	"github.com/pauljones0/middleman-bot/internal/models"
	"github.com/pauljones0/middleman-bot/internal/notifier"
	"github.com/pauljones0/middleman-bot/internal/util"
	"github.com/pauljones0/middleman-bot/internal/validator"
)

var (
	errGuildOnly        = errors.New("interaction outside a guild")
	errAdminOnly        = errors.New("administrator permission required")
	errUnknownTrigger   = errors.New("unrecognised interaction")
	errRoomProvisioning = errors.New("failed to provision deal room")
)

// notifyTimeout bounds a background broadcast, retries included.
const notifyTimeout = 30 * time.Second

// Processor turns an interaction into the response Discord should show.
type Processor interface {
	Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse
}

type InteractionProcessor struct {
	store     DealStore
	platform  Platform
	notifier  DealNotifier
	validator *validator.Validator
	pending   sync.WaitGroup
}

func New(store DealStore, platform Platform, n DealNotifier) *InteractionProcessor {
	return &InteractionProcessor{
		store:     store,
		platform:  platform,
		notifier:  n,
		validator: validator.New(),
	}
}

// Wait blocks until every broadcast started by Handle has finished.
func (p *InteractionProcessor) Wait() {
	p.pending.Wait()
}

// notify runs a broadcast in the background so the interaction response goes
// out first; Discord rejects responses later than three seconds. Failures are
// only logged.
func (p *InteractionProcessor) notify(ctx context.Context, what string, dealID int, send func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	p.pending.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in broadcast", "deal", dealID, "panic", r)
			}
		}()
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := send(nctx); err != nil {
			slog.Warn("Failed to "+what, "deal", dealID, "error", err)
		}
	})
}

func (p *InteractionProcessor) Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	trigger := ParseTrigger(i)

	resp, err := p.dispatch(ctx, i, trigger)
	outcome := "ok"
	if err != nil {
		outcome = outcomeLabel(err)
		attrs := []any{"workflow", trigger.Kind.String(), "user", actorID(i), "error", err}
		if trigger.DealID != 0 {
			attrs = append(attrs, "deal", trigger.DealID)
		}
		if outcome == "persistence" || outcome == "room" {
			slog.Error("Workflow failed", attrs...)
		} else {
			slog.Info("Workflow rejected", attrs...)
		}
		if resp == nil {
			resp = ephemeral(userMessage(err))
		}
	}
	metrics.WorkflowOutcomes.WithLabelValues(trigger.Kind.String(), outcome).Inc()
	return resp
}

func (p *InteractionProcessor) dispatch(ctx context.Context, i *discordgo.Interaction, t Trigger) (*discordgo.InteractionResponse, error) {
	if t.Kind == TriggerPing {
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}, nil
	}
	if t.Kind == TriggerUnknown {
		return nil, errUnknownTrigger
	}
	if i.GuildID == "" {
		return nil, errGuildOnly
	}

	switch t.Kind {
	case TriggerSetup:
		return p.setup(i)
	case TriggerRequestMediator:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: notifier.RequestForm(),
		}, nil
	case TriggerRequestForm:
		return p.request(ctx, i, t.Form)
	case TriggerClaim:
		return p.claim(ctx, i, t.DealID)
	case TriggerComplete:
		return p.complete(ctx, i, t.DealID)
	}
	return nil, errUnknownTrigger
}

func (p *InteractionProcessor) setup(i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		return nil, errAdminOnly
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{notifier.PanelEmbed()},
			Components: notifier.PanelComponents(),
		},
	}, nil
}

func (p *InteractionProcessor) request(ctx context.Context, i *discordgo.Interaction, form models.RequestForm) (*discordgo.InteractionResponse, error) {
	form.Counterparty = util.ParseUserReference(form.Counterparty)
	form.Item = strings.TrimSpace(form.Item)
	form.Price = strings.TrimSpace(form.Price)
	if err := p.validator.ValidateStruct(form); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidRequest, validator.Describe(err))
	}

	buyer := actorID(i)
	seller, err := p.platform.ResolveUser(ctx, form.Counterparty)
	if err != nil {
		return nil, err
	}
	if seller == buyer {
		return nil, models.ErrSelfTrade
	}

	deal, err := p.store.CreateDeal(ctx, buyer, seller, form.Item, form.Price)
	if err != nil {
		return nil, err
	}
	slog.Info("Deal requested", "deal", deal.ID, "buyer", deal.Buyer, "seller", deal.Seller)

	p.notify(ctx, "announce deal request", deal.ID, func(ctx context.Context) error {
		return p.notifier.AnnounceRequest(ctx, i.GuildID, deal)
	})

	return ephemeral(fmt.Sprintf("✅ Your MM request has been submitted! (Deal #%d)\n\nA middleman will claim your deal soon.", deal.ID)), nil
}

func (p *InteractionProcessor) claim(ctx context.Context, i *discordgo.Interaction, id int) (*discordgo.InteractionResponse, error) {
	existing, ok := p.store.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("deal #%d: %w", id, models.ErrNotFound)
	}
	if existing.Claimed() {
		return nil, fmt.Errorf("deal #%d: %w", id, models.ErrAlreadyClaimed)
	}

	// The store re-checks under its lock; a lost race surfaces as ErrAlreadyClaimed.
	deal, err := p.store.Claim(ctx, id, actorID(i))
	if err != nil {
		return nil, err
	}
	slog.Info("Deal claimed", "deal", deal.ID, "mediator", deal.Mediator)

	// From here on the claim stands, so the request message is always
	// updated and its button removed, even when the room is missing.
	room, err := p.platform.CreateDealRoom(ctx, i.GuildID, deal)
	if err != nil {
		return claimedMessage(i, deal, notifier.RoomFailedNotice), fmt.Errorf("deal #%d: %w: %v", id, errRoomProvisioning, err)
	}
	claimed := deal
	deal, err = p.store.AttachRoom(ctx, id, room)
	if err != nil {
		return claimedMessage(i, claimed, notifier.RoomFailedNotice), err
	}

	p.notify(ctx, "post room summary", deal.ID, func(ctx context.Context) error {
		return p.notifier.PostRoomSummary(ctx, deal)
	})

	return claimedMessage(i, deal, ""), nil
}

// claimedMessage rewrites the request message in place: the claim line, the
// original embeds and no components.
func claimedMessage(i *discordgo.Interaction, deal models.Deal, notice string) *discordgo.InteractionResponse {
	embeds := []*discordgo.MessageEmbed{}
	if i.Message != nil && i.Message.Embeds != nil {
		embeds = i.Message.Embeds
	}
	content := notifier.ClaimedContent(deal)
	if notice != "" {
		content += "\n" + notice
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     embeds,
			Components: []discordgo.MessageComponent{},
		},
	}
}

func (p *InteractionProcessor) complete(ctx context.Context, i *discordgo.Interaction, id int) (*discordgo.InteractionResponse, error) {
	actor := actorID(i)
	existing, ok := p.store.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("deal #%d: %w", id, models.ErrNotFound)
	}
	if existing.Mediator != actor {
		return nil, fmt.Errorf("deal #%d: %w", id, models.ErrNotAuthorized)
	}

	deal, err := p.store.Complete(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	slog.Info("Deal completed", "deal", deal.ID, "mediator", deal.Mediator)

	p.notify(ctx, "announce deal completion", deal.ID, func(ctx context.Context) error {
		return p.notifier.AnnounceCompletion(ctx, i.GuildID, deal)
	})

	return ephemeral(fmt.Sprintf("Marked deal #%d as completed.", deal.ID)), nil
}

func actorID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "Deal not found!"
	case errors.Is(err, models.ErrAlreadyClaimed):
		return "Deal already claimed!"
	case errors.Is(err, models.ErrNotAuthorized):
		return "Only the assigned Middleman can complete this deal."
	case errors.Is(err, models.ErrAlreadyCompleted):
		return "This deal is already completed."
	case errors.Is(err, models.ErrIdentityResolution):
		return "❗ Could not find that user. Please enter a valid Discord user ID."
	case errors.Is(err, models.ErrSelfTrade):
		return "❗ You cannot trade with yourself."
	case errors.Is(err, models.ErrInvalidRequest):
		return "❗ " + strings.TrimPrefix(err.Error(), models.ErrInvalidRequest.Error()+": ")
	case errors.Is(err, models.ErrPersistence):
		return "Something went wrong saving the deal. Please try again later."
	case errors.Is(err, errAdminOnly):
		return "Only administrators can set up the middleman panel."
	case errors.Is(err, errGuildOnly):
		return "This can only be used inside a server."
	default:
		return "Sorry, I don't know how to handle that."
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, models.ErrNotAuthorized), errors.Is(err, errAdminOnly):
		return "not_authorized"
	case errors.Is(err, models.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, models.ErrIdentityResolution):
		return "identity_resolution"
	case errors.Is(err, models.ErrSelfTrade):
		return "self_trade"
	case errors.Is(err, models.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, errRoomProvisioning):
		return "room"
	case errors.Is(err, models.ErrPersistence):
		return "persistence"
	default:
		return "rejected"
	}
}
