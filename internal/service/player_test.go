package service

import (
	"context"
	"errors"
	"testing"

	"github.com/forgo/lootbound/api/internal/model"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockPlayerRepo struct {
	createFunc      func(ctx context.Context, player *model.Player) error
	getByIDFunc     func(ctx context.Context, id string) (*model.Player, error)
	getByWalletFunc func(ctx context.Context, wallet string) (*model.Player, error)
	updateFunc      func(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error)
	leaderboardFunc func(ctx context.Context, limit int) ([]*model.Player, error)
}

func (m *mockPlayerRepo) Create(ctx context.Context, player *model.Player) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, player)
	}
	player.ID = "player:new"
	return nil
}

func (m *mockPlayerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockPlayerRepo) GetByWallet(ctx context.Context, wallet string) (*model.Player, error) {
	if m.getByWalletFunc != nil {
		return m.getByWalletFunc(ctx, wallet)
	}
	return nil, nil
}

func (m *mockPlayerRepo) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, updates)
	}
	return nil, nil
}

func (m *mockPlayerRepo) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	if m.leaderboardFunc != nil {
		return m.leaderboardFunc(ctx, limit)
	}
	return nil, nil
}

const mixedWallet = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

// ============================================================================
// ConnectPlayer Tests
// ============================================================================

func TestConnectPlayer_CreatesNewPlayer(t *testing.T) {
	t.Parallel()

	var created *model.Player
	repo := &mockPlayerRepo{
		createFunc: func(ctx context.Context, player *model.Player) error {
			player.ID = "player:1"
			created = player
			return nil
		},
	}
	svc := NewPlayerService(PlayerServiceConfig{Repo: repo})

	player, err := svc.ConnectPlayer(context.Background(), &model.ConnectPlayerRequest{Wallet: mixedWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if player.Wallet != model.NormalizeWallet(mixedWallet) {
		t.Errorf("wallet = %q, want lower-case", player.Wallet)
	}
	if player.Level != 1 || player.Experience != 0 || !player.IsActive {
		t.Errorf("unexpected defaults: %+v", player)
	}
	if player.Username != "Player_cdef01" {
		t.Errorf("username = %q, want Player_cdef01", player.Username)
	}
}

func TestConnectPlayer_ReactivatesExisting(t *testing.T) {
	t.Parallel()

	var gotUpdates map[string]interface{}
	repo := &mockPlayerRepo{
		getByWalletFunc: func(ctx context.Context, wallet string) (*model.Player, error) {
			if wallet != model.NormalizeWallet(mixedWallet) {
				t.Errorf("lookup wallet = %q, want normalized", wallet)
			}
			return &model.Player{ID: "player:1", Wallet: wallet}, nil
		},
		createFunc: func(ctx context.Context, player *model.Player) error {
			t.Error("Create must not be called for an existing wallet")
			return nil
		},
		updateFunc: func(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error) {
			gotUpdates = updates
			return &model.Player{ID: id, IsActive: true, Username: "hero"}, nil
		},
	}
	svc := NewPlayerService(PlayerServiceConfig{Repo: repo})

	player, err := svc.ConnectPlayer(context.Background(), &model.ConnectPlayerRequest{Wallet: mixedWallet, Username: "hero"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !player.IsActive {
		t.Error("expected player to be active")
	}
	if gotUpdates["is_active"] != true || gotUpdates["username"] != "hero" {
		t.Errorf("unexpected updates: %v", gotUpdates)
	}
}

func TestConnectPlayer_InvalidWallet(t *testing.T) {
	t.Parallel()

	svc := NewPlayerService(PlayerServiceConfig{Repo: &mockPlayerRepo{}})
	_, err := svc.ConnectPlayer(context.Background(), &model.ConnectPlayerRequest{Wallet: "0x123"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConnectPlayer_RepositoryError(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection reset")
	repo := &mockPlayerRepo{
		getByWalletFunc: func(ctx context.Context, wallet string) (*model.Player, error) {
			return nil, dbErr
		},
	}
	svc := NewPlayerService(PlayerServiceConfig{Repo: repo})

	_, err := svc.ConnectPlayer(context.Background(), &model.ConnectPlayerRequest{Wallet: mixedWallet})
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}

// ============================================================================
// Lookup and Update Tests
// ============================================================================

func TestGetPlayer_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewPlayerService(PlayerServiceConfig{Repo: &mockPlayerRepo{}})
	if _, err := svc.GetPlayer(context.Background(), "player:none"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := svc.GetPlayerByWallet(context.Background(), mixedWallet); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := svc.GetPlayerByWallet(context.Background(), "nope"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLeaveGame(t *testing.T) {
	t.Parallel()

	repo := &mockPlayerRepo{
		updateFunc: func(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error) {
			if updates["is_active"] != false {
				t.Errorf("expected is_active=false, got %v", updates)
			}
			return &model.Player{ID: id}, nil
		},
	}
	svc := NewPlayerService(PlayerServiceConfig{Repo: repo})
	if err := svc.LeaveGame(context.Background(), "player:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := NewPlayerService(PlayerServiceConfig{Repo: &mockPlayerRepo{}})
	if err := missing.LeaveGame(context.Background(), "player:none"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestUpdatePlayer(t *testing.T) {
	t.Parallel()

	var gotUpdates map[string]interface{}
	repo := &mockPlayerRepo{
		updateFunc: func(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error) {
			gotUpdates = updates
			return &model.Player{ID: id, Level: 4}, nil
		},
	}
	svc := NewPlayerService(PlayerServiceConfig{Repo: repo})

	level := 4
	if _, err := svc.UpdatePlayer(context.Background(), "player:1", &model.UpdatePlayerRequest{Level: &level}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotUpdates) != 1 || gotUpdates["level"] != 4 {
		t.Errorf("unexpected updates: %v", gotUpdates)
	}

	bad := -1
	if _, err := svc.UpdatePlayer(context.Background(), "player:1", &model.UpdatePlayerRequest{Experience: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLeaderboard_ClampsLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{0, model.DefaultLeaderboard},
		{10, 10},
		{1000, model.MaxLeaderboard},
	}
	for _, tt := range tests {
		var got int
		repo := &mockPlayerRepo{
			leaderboardFunc: func(ctx context.Context, limit int) ([]*model.Player, error) {
				got = limit
				return nil, nil
			},
		}
		svc := NewPlayerService(PlayerServiceConfig{Repo: repo})
		if _, err := svc.Leaderboard(context.Background(), tt.in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Leaderboard(%d) used limit %d, want %d", tt.in, got, tt.want)
		}
	}
}
