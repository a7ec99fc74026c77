package processor

import (
	"context"

	"github.com/pauljones0/middleman-bot/internal/models"
)

// DealStore abstracts the deal repository.
type DealStore interface {
	CreateDeal(ctx context.Context, buyer, seller, item, price string) (models.Deal, error)
	FindByID(id int) (models.Deal, bool)
	Claim(ctx context.Context, id int, mediator string) (models.Deal, error)
	AttachRoom(ctx context.Context, id int, room string) (models.Deal, error)
	Complete(ctx context.Context, id int, actor string) (models.Deal, error)
}

// Platform abstracts the Discord calls that workflows depend on.
type Platform interface {
	ResolveUser(ctx context.Context, userID string) (string, error)
	CreateDealRoom(ctx context.Context, guildID string, deal models.Deal) (string, error)
}

// DealNotifier abstracts the notification layer.
type DealNotifier interface {
	AnnounceRequest(ctx context.Context, guildID string, deal models.Deal) error
	PostRoomSummary(ctx context.Context, deal models.Deal) error
	AnnounceCompletion(ctx context.Context, guildID string, deal models.Deal) error
}
