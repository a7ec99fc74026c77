package notifier

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/middleman-bot/internal/models"
)

// Command names, component custom IDs and modal input IDs. The router parses
// interactions against these; the builders below emit them.
const (
	CommandSetup     = "setup_mm"
	CommandCompleted = "completed"
	OptionDealID     = "dealid"

	CustomIDRequestMediator = "request_mm"
	CustomIDClaimPrefix     = "claim_"
	CustomIDRequestForm     = "mm_form"

	InputCounterparty = "trader_id"
	InputItem         = "item"
	InputPrice        = "price"
)

const (
	colorOrange = 15105570 // #E67E22
	colorBlue   = 3447003  // #3498DB
	colorGreen  = 5763719  // #57F287
)

// Commands returns the slash commands declared in every guild.
func Commands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	dmAllowed := false
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandSetup,
			Description:              "Create the Middleman request panel",
			DefaultMemberPermissions: &adminOnly,
			DMPermission:             &dmAllowed,
		},
		{
			Name:         CommandCompleted,
			Description:  "Mark deal as completed (Middleman Only)",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        OptionDealID,
					Description: "Deal ID number",
					Required:    true,
				},
			},
		},
	}
}

func Mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func RoleMention(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}

// ClaimCustomID is the custom ID of the claim button for a deal.
func ClaimCustomID(dealID int) string {
	return fmt.Sprintf("%s%d", CustomIDClaimPrefix, dealID)
}

func PanelEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🛡 Middleman Services",
		Description: "Need a trusted middleman for your trade?\n\n" +
			"Click the button below to request a middleman. You'll be asked to provide:\n" +
			"• The person you're trading with\n" +
			"• What you're trading\n" +
			"• The price/offer",
		Color: colorOrange,
	}
}

func PanelComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: CustomIDRequestMediator,
				Label:    "🛡 Request Middleman",
				Style:    discordgo.PrimaryButton,
			},
		}},
	}
}

// RequestForm is the modal shown after "Request Middleman" is pressed.
func RequestForm() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CustomIDRequestForm,
		Title:    "Request a Middleman",
		Components: []discordgo.MessageComponent{
			textInputRow(InputCounterparty, "Trader's Discord ID or @mention", "e.g. 123456789012345678 or @username", 64),
			textInputRow(InputItem, "What are you trading?", "e.g. Roblox Account, Game Items, etc.", 200),
			textInputRow(InputPrice, "Price / Offer", "e.g. $50, 100 Robux, etc.", 100),
		},
	}
}

func textInputRow(customID, label, placeholder string, maxLength int) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID:    customID,
			Label:       label,
			Placeholder: placeholder,
			Style:       discordgo.TextInputShort,
			Required:    true,
			MaxLength:   maxLength,
		},
	}}
}

func RequestEmbed(deal models.Deal) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🛡 Middleman Request · Deal #%d", deal.ID),
		Description: "A new deal needs a middleman!",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Buyer", Value: Mention(deal.Buyer), Inline: true},
			{Name: "Seller", Value: Mention(deal.Seller), Inline: true},
			{Name: "Item", Value: deal.Item},
			{Name: "Price", Value: deal.Price},
		},
		Color: colorOrange,
	}
}

func ClaimComponents(dealID int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: ClaimCustomID(dealID),
				Label:    "Claim MM",
				Style:    discordgo.SuccessButton,
			},
		}},
	}
}

// RoomFailedNotice is appended to the claimed request message when the deal
// room could not be set up.
const RoomFailedNotice = "⚠️ The private deal room could not be created. Please contact an administrator."

// ClaimedContent replaces the request message body once a deal is claimed.
func ClaimedContent(deal models.Deal) string {
	return fmt.Sprintf("Deal #%d claimed by %s", deal.ID, Mention(deal.Mediator))
}

func RoomEmbed(deal models.Deal) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔐 Deal #%d Active", deal.ID),
		Description: "Private deal room created. Complete your trade here!",
		Fields:      partyFields(deal),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("When complete, MM uses /%s %d", CommandCompleted, deal.ID),
		},
		Color: colorBlue,
	}
}

// RoomContent pings all three parties in the deal room.
func RoomContent(deal models.Deal) string {
	return fmt.Sprintf("%s %s %s", Mention(deal.Buyer), Mention(deal.Seller), Mention(deal.Mediator))
}

func CompletedEmbed(deal models.Deal) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("✅ Deal #%d Completed", deal.ID),
		Fields: partyFields(deal),
		Color:  colorGreen,
	}
}

func partyFields(deal models.Deal) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		{Name: "Buyer", Value: Mention(deal.Buyer)},
		{Name: "Seller", Value: Mention(deal.Seller)},
		{Name: "Middleman", Value: Mention(deal.Mediator)},
		{Name: "Item", Value: deal.Item},
		{Name: "Price", Value: deal.Price},
	}
}
