package processor

import (
	"github.com/bwmarrin/discordgo"

	"github.com/pauljones0/middleman-bot/internal/models"
	"github.com/pauljones0/middleman-bot/internal/notifier"
	"github.com/pauljones0/middleman-bot/internal/util"
)

type TriggerKind int

const (
	TriggerUnknown TriggerKind = iota
	TriggerPing
	TriggerSetup
	TriggerRequestMediator
	TriggerRequestForm
	TriggerClaim
	TriggerComplete
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerPing:
		return "ping"
	case TriggerSetup:
		return "setup"
	case TriggerRequestMediator:
		return "request_mediator"
	case TriggerRequestForm:
		return "request"
	case TriggerClaim:
		return "claim"
	case TriggerComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Trigger is an interaction classified once at the router boundary.
// DealID is set for Claim and Complete; Form for RequestForm.
type Trigger struct {
	Kind   TriggerKind
	DealID int
	Form   models.RequestForm
}

// ParseTrigger classifies an interaction. Anything not recognised, including
// a claim or completion without a usable deal id, is TriggerUnknown.
func ParseTrigger(i *discordgo.Interaction) Trigger {
	switch i.Type {
	case discordgo.InteractionPing:
		return Trigger{Kind: TriggerPing}

	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case notifier.CommandSetup:
			return Trigger{Kind: TriggerSetup}
		case notifier.CommandCompleted:
			for _, opt := range data.Options {
				if opt.Name != notifier.OptionDealID {
					continue
				}
				if id, ok := optionInt(opt); ok && id > 0 {
					return Trigger{Kind: TriggerComplete, DealID: id}
				}
			}
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if customID == notifier.CustomIDRequestMediator {
			return Trigger{Kind: TriggerRequestMediator}
		}
		if id, ok := util.ParseIDSuffix(customID, notifier.CustomIDClaimPrefix); ok {
			return Trigger{Kind: TriggerClaim, DealID: id}
		}

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		if data.CustomID == notifier.CustomIDRequestForm {
			values := modalValues(data)
			return Trigger{Kind: TriggerRequestForm, Form: models.RequestForm{
				Counterparty: values[notifier.InputCounterparty],
				Item:         values[notifier.InputItem],
				Price:        values[notifier.InputPrice],
			}}
		}
	}
	return Trigger{Kind: TriggerUnknown}
}

// optionInt reads an integer option. JSON numbers decode as float64.
func optionInt(opt *discordgo.ApplicationCommandInteractionDataOption) (int, bool) {
	switch v := opt.Value.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if input, ok := rc.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}
