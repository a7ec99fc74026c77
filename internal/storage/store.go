package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pauljones0/middleman-bot/internal/metrics"
	"github.com/pauljones0/middleman-bot/internal/models"
)

// Store is the in-memory table of deals mirrored to a Backend after every
// mutation. It is the only owner of the document; callers get copies.
//
// Every mutation holds mu across the check, the in-memory update and the
// durable write, so writes never interleave and concurrent claims of the
// same deal resolve to exactly one winner.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     Document
	index   map[int]int
}

// Open loads the document from backend. A backend that cannot be read leaves
// the store empty rather than failing startup.
func Open(ctx context.Context, backend Backend) *Store {
	doc, err := backend.Load(ctx)
	if err != nil {
		slog.Warn("Failed to load deals, starting from an empty store", "error", err)
		doc = EmptyDocument()
	}
	doc = normalize(doc)

	s := &Store{backend: backend, doc: doc, index: make(map[int]int, len(doc.Deals))}
	for i, d := range doc.Deals {
		s.index[d.ID] = i
	}
	s.refreshGauges()
	slog.Info("Loaded deals", "count", len(doc.Deals), "nextId", doc.NextID)
	return s
}

// CreateDeal allocates the next id and inserts a pending deal. The id is
// consumed even if the durable write fails.
func (s *Store) CreateDeal(ctx context.Context, buyer, seller, item, price string) (models.Deal, error) {
	if buyer == seller {
		return models.Deal{}, models.ErrSelfTrade
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deal := models.Deal{
		ID:     s.doc.NextID,
		Buyer:  buyer,
		Seller: seller,
		Item:   item,
		Price:  price,
		Status: models.StatusPending,
	}
	s.doc.NextID++
	s.doc.Deals = append(s.doc.Deals, deal)
	s.index[deal.ID] = len(s.doc.Deals) - 1

	if err := s.persist(ctx); err != nil {
		return deal, err
	}
	return deal, nil
}

func (s *Store) FindByID(id int) (models.Deal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return models.Deal{}, false
	}
	return s.doc.Deals[i], true
}

// Claim assigns mediator to a pending deal and activates it.
func (s *Store) Claim(ctx context.Context, id int, mediator string) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal, err := s.lookup(id)
	if err != nil {
		return models.Deal{}, err
	}
	if deal.Claimed() {
		return *deal, models.ErrAlreadyClaimed
	}

	deal.Mediator = mediator
	deal.Status = models.StatusActive
	if err := s.persist(ctx); err != nil {
		return *deal, err
	}
	return *deal, nil
}

// AttachRoom records the private room of a claimed deal. A room is set once.
func (s *Store) AttachRoom(ctx context.Context, id int, room string) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal, err := s.lookup(id)
	if err != nil {
		return models.Deal{}, err
	}
	if !deal.Claimed() {
		return *deal, models.ErrNotClaimed
	}
	if deal.Room != "" {
		return *deal, models.ErrRoomAttached
	}

	deal.Room = room
	if err := s.persist(ctx); err != nil {
		return *deal, err
	}
	return *deal, nil
}

// Complete marks an active deal completed. Only its mediator may do so.
func (s *Store) Complete(ctx context.Context, id int, actor string) (models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deal, err := s.lookup(id)
	if err != nil {
		return models.Deal{}, err
	}
	if !deal.Claimed() || deal.Mediator != actor {
		return *deal, models.ErrNotAuthorized
	}
	if deal.Status == models.StatusCompleted {
		return *deal, models.ErrAlreadyCompleted
	}

	deal.Status = models.StatusCompleted
	if err := s.persist(ctx); err != nil {
		return *deal, err
	}
	return *deal, nil
}

// List returns a copy of every deal in id order.
func (s *Store) List() []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Deal, len(s.doc.Deals))
	copy(out, s.doc.Deals)
	return out
}

// NextID is the id the next created deal will receive.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NextID
}

func (s *Store) lookup(id int) (*models.Deal, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("deal #%d: %w", id, models.ErrNotFound)
	}
	return &s.doc.Deals[i], nil
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) error {
	snapshot := Document{NextID: s.doc.NextID, Deals: make([]models.Deal, len(s.doc.Deals))}
	copy(snapshot.Deals, s.doc.Deals)

	if err := s.backend.Save(ctx, snapshot); err != nil {
		metrics.StoreWrites.WithLabelValues("error").Inc()
		slog.Error("Failed to persist deals", "error", err)
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	metrics.StoreWrites.WithLabelValues("ok").Inc()
	s.refreshGauges()
	return nil
}

func (s *Store) refreshGauges() {
	counts := map[models.Status]int{
		models.StatusPending:   0,
		models.StatusActive:    0,
		models.StatusCompleted: 0,
	}
	for _, d := range s.doc.Deals {
		counts[d.Status]++
	}
	for status, n := range counts {
		metrics.DealsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}
