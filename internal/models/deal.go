package models

import (
	"errors"
)

var (
	// ErrNotFound is returned when a referenced deal id does not exist.
	ErrNotFound = errors.New("deal not found")
	// ErrAlreadyClaimed is returned when a deal already has a mediator.
	ErrAlreadyClaimed = errors.New("deal already claimed")
	// ErrNotAuthorized is returned when someone other than the mediator tries to complete a deal.
	ErrNotAuthorized = errors.New("only the assigned middleman can complete this deal")
	// ErrIdentityResolution is returned when the counterparty cannot be resolved to a user.
	ErrIdentityResolution = errors.New("could not resolve counterparty")
	// ErrSelfTrade is returned when buyer and seller are the same user.
	ErrSelfTrade = errors.New("cannot trade with yourself")
	// ErrPersistence wraps failures of the durable write.
	ErrPersistence = errors.New("failed to persist deals")
	// ErrAlreadyCompleted is returned when a completed deal is completed again.
	ErrAlreadyCompleted = errors.New("deal already completed")
	// ErrInvalidRequest wraps a request form that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotClaimed is returned when a room is attached to an unclaimed deal.
	ErrNotClaimed = errors.New("deal has not been claimed")
	// ErrRoomAttached is returned when a deal already has a room.
	ErrRoomAttached = errors.New("deal already has a room")
)

// Status is the lifecycle state of a deal. It only moves forward.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Deal is a single middleman escrow record.
type Deal struct {
	ID       int    `json:"id" firestore:"id"`
	Buyer    string `json:"buyer" firestore:"buyer"`
	Seller   string `json:"seller" firestore:"seller"`
	Item     string `json:"item" firestore:"item"`
	Price    string `json:"price" firestore:"price"`
	Mediator string `json:"mediator,omitempty" firestore:"mediator,omitempty"`
	Status   Status `json:"status" firestore:"status"`
	Room     string `json:"room,omitempty" firestore:"room,omitempty"`
}

// Claimed reports whether a mediator has taken the deal.
func (d Deal) Claimed() bool {
	return d.Mediator != ""
}

// RequestForm is the user input collected by the "request middleman" modal.
// Counterparty must be a bare user id once mention markup is stripped.
type RequestForm struct {
	Counterparty string `validate:"required,snowflake"`
	Item         string `validate:"required,max=200"`
	Price        string `validate:"required,max=100"`
}
