package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFirestoreCollection = "middleman"
	defaultFirestoreDocument   = "state"
)

// FirestoreBackend keeps the whole document in a single Firestore document.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
	document   string
}

type FirestoreOptions struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
	Document        string
}

func NewFirestoreBackend(ctx context.Context, opts FirestoreOptions) (*FirestoreBackend, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}

	collection := opts.Collection
	if collection == "" {
		collection = defaultFirestoreCollection
	}
	document := opts.Document
	if document == "" {
		document = defaultFirestoreDocument
	}
	return &FirestoreBackend{client: client, collection: collection, document: document}, nil
}

func (b *FirestoreBackend) Close() error {
	return b.client.Close()
}

func (b *FirestoreBackend) docRef() *firestore.DocumentRef {
	return b.client.Collection(b.collection).Doc(b.document)
}

// Load reads the state document. A missing document is an empty store.
func (b *FirestoreBackend) Load(ctx context.Context) (Document, error) {
	snap, err := b.docRef().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Info("No deals document in Firestore yet", "collection", b.collection, "document", b.document)
			return EmptyDocument(), nil
		}
		return EmptyDocument(), fmt.Errorf("failed to get deals document: %w", err)
	}
	if !snap.Exists() {
		return EmptyDocument(), nil
	}

	var doc Document
	if err := snap.DataTo(&doc); err != nil {
		slog.Warn("Deals document is unreadable, starting from an empty store", "error", err)
		return EmptyDocument(), nil
	}
	return normalize(doc), nil
}

// Save overwrites the state document.
func (b *FirestoreBackend) Save(ctx context.Context, doc Document) error {
	if _, err := b.docRef().Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to set deals document: %w", err)
	}
	return nil
}
