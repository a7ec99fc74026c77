package storage

import (
	"context"

	"github.com/pauljones0/middleman-bot/internal/models"
)

// Document is the whole persisted state. Backends always read and write it in full.
type Document struct {
	NextID int           `json:"nextId" firestore:"nextId"`
	Deals  []models.Deal `json:"deals" firestore:"deals"`
}

// EmptyDocument is the state of a store that has never issued a deal.
func EmptyDocument() Document {
	return Document{NextID: 1, Deals: []models.Deal{}}
}

// Backend is a durable target for the document.
type Backend interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// normalize repairs a loaded document so ids are never reissued.
func normalize(doc Document) Document {
	if doc.Deals == nil {
		doc.Deals = []models.Deal{}
	}
	maxID := 0
	for _, d := range doc.Deals {
		if d.ID > maxID {
			maxID = d.ID
		}
	}
	if doc.NextID <= maxID {
		doc.NextID = maxID + 1
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	return doc
}
