package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pauljones0/middleman-bot/internal/models"
)

type memBackend struct {
	mu      sync.Mutex
	doc     Document
	loadErr error
	saveErr error
	saves   int
}

func (m *memBackend) Load(_ context.Context) (Document, error) {
	if m.loadErr != nil {
		return Document{}, m.loadErr
	}
	return m.doc, nil
}

func (m *memBackend) Save(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.doc = doc
	return nil
}

func newTestStore(t *testing.T) (*Store, *memBackend) {
	t.Helper()
	backend := &memBackend{doc: EmptyDocument()}
	return Open(context.Background(), backend), backend
}

func TestCreateDeal_AssignsIncreasingIDs(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		deal, err := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")
		if err != nil {
			t.Fatalf("CreateDeal() error = %v", err)
		}
		if deal.ID != want {
			t.Errorf("deal.ID = %d, want %d", deal.ID, want)
		}
		if deal.Status != models.StatusPending {
			t.Errorf("deal.Status = %s, want pending", deal.Status)
		}
		if deal.Mediator != "" || deal.Room != "" {
			t.Errorf("new deal has mediator %q room %q, want both empty", deal.Mediator, deal.Room)
		}
	}

	if backend.saves != 3 {
		t.Errorf("Expected 3 saves, got %d", backend.saves)
	}
	if backend.doc.NextID != 4 {
		t.Errorf("Persisted nextId = %d, want 4", backend.doc.NextID)
	}
}

func TestCreateDeal_SelfTrade(t *testing.T) {
	store, backend := newTestStore(t)

	_, err := store.CreateDeal(context.Background(), "U1", "U1", "Rare Sword", "$20")
	if !errors.Is(err, models.ErrSelfTrade) {
		t.Fatalf("CreateDeal() error = %v, want ErrSelfTrade", err)
	}
	if store.NextID() != 1 {
		t.Errorf("NextID() = %d, want 1", store.NextID())
	}
	if len(store.List()) != 0 {
		t.Errorf("Expected no deals, got %d", len(store.List()))
	}
	if backend.saves != 0 {
		t.Errorf("Expected no saves, got %d", backend.saves)
	}
}

func TestCreateDeal_PersistenceFailureConsumesID(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	backend.saveErr = errors.New("disk full")
	_, err := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("CreateDeal() error = %v, want ErrPersistence", err)
	}

	backend.saveErr = nil
	deal, err := store.CreateDeal(ctx, "U1", "U2", "Shield", "$5")
	if err != nil {
		t.Fatalf("CreateDeal() error = %v", err)
	}
	if deal.ID != 2 {
		t.Errorf("deal.ID = %d, want 2 (ids are never reused)", deal.ID)
	}
}

func TestClaim(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	deal, _ := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")

	claimed, err := store.Claim(ctx, deal.ID, "M1")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if claimed.Mediator != "M1" || claimed.Status != models.StatusActive {
		t.Errorf("Claim() = %+v, want mediator M1 and status active", claimed)
	}

	_, err = store.Claim(ctx, deal.ID, "M2")
	if !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Fatalf("second Claim() error = %v, want ErrAlreadyClaimed", err)
	}
	got, _ := store.FindByID(deal.ID)
	if got.Mediator != "M1" || got.Status != models.StatusActive {
		t.Errorf("deal changed after lost claim: %+v", got)
	}

	_, err = store.Claim(ctx, 99, "M1")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Claim(99) error = %v, want ErrNotFound", err)
	}
}

func TestClaim_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	deal, _ := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")

	const claimers = 16
	var wg sync.WaitGroup
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Claim(ctx, deal.ID, string(rune('A'+i)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrAlreadyClaimed):
		default:
			t.Errorf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("Expected exactly 1 winning claim, got %d", wins)
	}
}

func TestAttachRoom(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	deal, _ := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")

	if _, err := store.AttachRoom(ctx, deal.ID, "C1"); !errors.Is(err, models.ErrNotClaimed) {
		t.Errorf("AttachRoom() on pending deal error = %v, want ErrNotClaimed", err)
	}

	store.Claim(ctx, deal.ID, "M1")
	got, err := store.AttachRoom(ctx, deal.ID, "C1")
	if err != nil {
		t.Fatalf("AttachRoom() error = %v", err)
	}
	if got.Room != "C1" {
		t.Errorf("Room = %q, want C1", got.Room)
	}

	if _, err := store.AttachRoom(ctx, deal.ID, "C2"); !errors.Is(err, models.ErrRoomAttached) {
		t.Errorf("second AttachRoom() error = %v, want ErrRoomAttached", err)
	}
	got, _ = store.FindByID(deal.ID)
	if got.Room != "C1" {
		t.Errorf("Room changed to %q, want C1", got.Room)
	}
}

func TestComplete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	deal, _ := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")

	if _, err := store.Complete(ctx, deal.ID, "M1"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Complete() on pending deal error = %v, want ErrNotAuthorized", err)
	}

	store.Claim(ctx, deal.ID, "M1")

	if _, err := store.Complete(ctx, deal.ID, "M2"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Complete() by M2 error = %v, want ErrNotAuthorized", err)
	}
	got, _ := store.FindByID(deal.ID)
	if got.Status != models.StatusActive {
		t.Errorf("Status = %s after unauthorized completion, want active", got.Status)
	}

	done, err := store.Complete(ctx, deal.ID, "M1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Errorf("Status = %s, want completed", done.Status)
	}

	if _, err := store.Complete(ctx, deal.ID, "M1"); !errors.Is(err, models.ErrAlreadyCompleted) {
		t.Errorf("repeat Complete() error = %v, want ErrAlreadyCompleted", err)
	}
	if _, err := store.Complete(ctx, 42, "M1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Complete(42) error = %v, want ErrNotFound", err)
	}
}

func TestPersistenceFailureKeepsInMemoryMutation(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	deal, _ := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")

	backend.saveErr = errors.New("permission denied")
	if _, err := store.Claim(ctx, deal.ID, "M1"); !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("Claim() error = %v, want ErrPersistence", err)
	}

	got, _ := store.FindByID(deal.ID)
	if got.Mediator != "M1" {
		t.Errorf("Mediator = %q, want in-memory claim to stand", got.Mediator)
	}
	if backend.doc.Deals[0].Mediator != "" {
		t.Errorf("Persisted mediator = %q, want unchanged", backend.doc.Deals[0].Mediator)
	}
}

func TestOpen_LoadErrorFallsBackToEmpty(t *testing.T) {
	backend := &memBackend{loadErr: errors.New("unavailable")}
	store := Open(context.Background(), backend)

	if store.NextID() != 1 {
		t.Errorf("NextID() = %d, want 1", store.NextID())
	}
	if len(store.List()) != 0 {
		t.Errorf("Expected empty store, got %d deals", len(store.List()))
	}
}

func TestOpen_RepairsStaleNextID(t *testing.T) {
	backend := &memBackend{doc: Document{
		NextID: 2,
		Deals: []models.Deal{
			{ID: 1, Buyer: "U1", Seller: "U2", Status: models.StatusPending},
			{ID: 5, Buyer: "U3", Seller: "U4", Status: models.StatusPending},
		},
	}}
	store := Open(context.Background(), backend)

	deal, err := store.CreateDeal(context.Background(), "U1", "U2", "x", "y")
	if err != nil {
		t.Fatalf("CreateDeal() error = %v", err)
	}
	if deal.ID != 6 {
		t.Errorf("deal.ID = %d, want 6", deal.ID)
	}
}

func TestReloadFromFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "deals.json")

	store := Open(ctx, NewFileBackend(path))
	first, _ := store.CreateDeal(ctx, "U1", "U2", "Rare Sword", "$20")
	store.Claim(ctx, first.ID, "M1")
	store.AttachRoom(ctx, first.ID, "C1")
	store.Complete(ctx, first.ID, "M1")
	second, _ := store.CreateDeal(ctx, "U3", "U4", "Shield", "100 coins")
	before := store.List()

	reloaded := Open(ctx, NewFileBackend(path))
	after := reloaded.List()
	if len(after) != len(before) {
		t.Fatalf("Reloaded %d deals, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("deal %d after reload = %+v, want %+v", before[i].ID, after[i], before[i])
		}
	}

	third, err := reloaded.CreateDeal(ctx, "U5", "U6", "Bow", "$3")
	if err != nil {
		t.Fatalf("CreateDeal() error = %v", err)
	}
	if third.ID != second.ID+1 {
		t.Errorf("third.ID = %d, want %d", third.ID, second.ID+1)
	}
}
