package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/lootbound/api/internal/model"
)

// PlayerRepository defines the interface for player storage
type PlayerRepository interface {
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, id string) (*model.Player, error)
	GetByWallet(ctx context.Context, wallet string) (*model.Player, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error)
	Leaderboard(ctx context.Context, limit int) ([]*model.Player, error)
}

// PlayerService handles player identity and profile
type PlayerService struct {
	repo   PlayerRepository
	now    func() time.Time
	logger *slog.Logger
}

// PlayerServiceConfig holds configuration for the player service
type PlayerServiceConfig struct {
	Repo   PlayerRepository
	Now    func() time.Time // Optional, defaults to time.Now
	Logger *slog.Logger     // Optional, defaults to slog.Default()
}

// NewPlayerService creates a new player service
func NewPlayerService(cfg PlayerServiceConfig) *PlayerService {
	return &PlayerService{
		repo:   cfg.Repo,
		now:    defaultClock(cfg.Now),
		logger: defaultLogger(cfg.Logger),
	}
}

// ConnectPlayer reactivates the player owning the wallet or registers a new one
func (s *PlayerService) ConnectPlayer(ctx context.Context, req *model.ConnectPlayerRequest) (*model.Player, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	wallet := model.NormalizeWallet(req.Wallet)
	username := strings.TrimSpace(req.Username)

	existing, err := s.repo.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to look up player: %w", err)
	}

	if existing != nil {
		updates := map[string]interface{}{"is_active": true}
		if username != "" {
			updates["username"] = username
		}
		player, err := s.repo.Update(ctx, existing.ID, updates)
		if err != nil {
			return nil, fmt.Errorf("failed to reactivate player: %w", err)
		}
		if player == nil {
			return nil, ErrPlayerNotFound
		}
		return player, nil
	}

	if username == "" {
		username = defaultUsername(wallet)
	}
	now := s.now()
	player := &model.Player{
		Wallet:     wallet,
		Username:   username,
		Level:      1,
		Experience: 0,
		IsActive:   true,
		CreatedOn:  now,
		UpdatedOn:  now,
	}
	if err := s.repo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	s.logger.InfoContext(ctx, "player registered",
		slog.String("player_id", player.ID),
		slog.String("wallet", wallet),
	)
	return player, nil
}

// LeaveGame marks the player inactive
func (s *PlayerService) LeaveGame(ctx context.Context, playerID string) error {
	player, err := s.repo.Update(ctx, playerID, map[string]interface{}{"is_active": false})
	if err != nil {
		return fmt.Errorf("failed to deactivate player: %w", err)
	}
	if player == nil {
		return ErrPlayerNotFound
	}
	return nil
}

// GetPlayer returns a player by id
func (s *PlayerService) GetPlayer(ctx context.Context, playerID string) (*model.Player, error) {
	player, err := s.repo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// GetPlayerByWallet returns a player by wallet address in any case
func (s *PlayerService) GetPlayerByWallet(ctx context.Context, wallet string) (*model.Player, error) {
	if !model.IsWalletAddress(strings.TrimSpace(wallet)) {
		return nil, invalidField("wallet", "must be a 0x-prefixed 40 hex character address")
	}
	player, err := s.repo.GetByWallet(ctx, model.NormalizeWallet(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// UpdatePlayer applies a partial profile update
func (s *PlayerService) UpdatePlayer(ctx context.Context, playerID string, req *model.UpdatePlayerRequest) (*model.Player, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	if req.Level != nil {
		updates["level"] = *req.Level
	}
	if req.Experience != nil {
		updates["experience"] = *req.Experience
	}
	if len(updates) == 0 {
		return s.GetPlayer(ctx, playerID)
	}

	player, err := s.repo.Update(ctx, playerID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// Leaderboard returns the top active players by level, then experience
func (s *PlayerService) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	if limit <= 0 {
		limit = model.DefaultLeaderboard
	}
	if limit > model.MaxLeaderboard {
		limit = model.MaxLeaderboard
	}
	players, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return players, nil
}

// defaultUsername derives a display name from the wallet tail
func defaultUsername(wallet string) string {
	if len(wallet) <= 6 {
		return "Player_" + wallet
	}
	return "Player_" + wallet[len(wallet)-6:]
}
