package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// PlayerRepository handles player data access
type PlayerRepository struct {
	db database.Database
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db database.Database) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create creates a new player. The wallet index is unique.
func (r *PlayerRepository) Create(ctx context.Context, player *model.Player) error {
	query := `
		CREATE player CONTENT {
			wallet: $wallet,
			username: $username,
			level: $level,
			experience: $experience,
			is_active: $is_active,
			created_on: <datetime> $created_on,
			updated_on: <datetime> $created_on
		}
	`
	vars := map[string]interface{}{
		"wallet":     model.NormalizeWallet(player.Wallet),
		"username":   player.Username,
		"level":      player.Level,
		"experience": player.Experience,
		"is_active":  player.IsActive,
		"created_on": formatTime(player.CreatedOn),
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: wallet already registered", database.ErrDuplicate)
		}
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}
	player.ID = created.ID
	player.Wallet = model.NormalizeWallet(player.Wallet)
	return nil
}

// GetByID retrieves a player by ID
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*model.Player, error) {
	if !isRecordOf(id, "player") {
		return nil, nil
	}
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parsePlayer(result)
}

// GetByWallet retrieves a player by normalized wallet
func (r *PlayerRepository) GetByWallet(ctx context.Context, wallet string) (*model.Player, error) {
	query := `SELECT * FROM player WHERE wallet = $wallet LIMIT 1`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"wallet": model.NormalizeWallet(wallet)})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parsePlayer(result)
}

var playerUpdatable = map[string]bool{
	"username":   true,
	"level":      true,
	"experience": true,
	"is_active":  true,
}

// Update applies a partial update and returns the updated player, or nil if missing
func (r *PlayerRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error) {
	if !isRecordOf(id, "player") {
		return nil, nil
	}

	sets := []string{"updated_on = time::now()"}
	vars := map[string]interface{}{"id": id}
	for field, value := range updates {
		if !playerUpdatable[field] {
			return nil, fmt.Errorf("%w: field %q is not updatable", database.ErrQuery, field)
		}
		sets = append(sets, fmt.Sprintf("%s = $%s", field, field))
		vars[field] = value
	}

	query := fmt.Sprintf("UPDATE type::record($id) SET %s RETURN AFTER", strings.Join(sets, ", "))
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parsePlayer(result)
}

// Leaderboard returns active players by level, then experience
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	query := `
		SELECT * FROM player
		WHERE is_active = true
		ORDER BY level DESC, experience DESC
		LIMIT $limit
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, err
	}

	records := statementRecords(results, 0)
	players := make([]*model.Player, 0, len(records))
	for _, rec := range records {
		p, err := parsePlayer(rec)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func parsePlayer(result interface{}) (*model.Player, error) {
	data, err := firstRecord(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model.Player{
		ID:         convertSurrealID(data["id"]),
		Wallet:     getString(data, "wallet"),
		Username:   getString(data, "username"),
		Level:      getInt(data, "level"),
		Experience: getInt(data, "experience"),
		IsActive:   getBool(data, "is_active"),
		CreatedOn:  parseTime(data["created_on"]),
		UpdatedOn:  parseTime(data["updated_on"]),
	}, nil
}
