package memory

import (
	"context"
	"sort"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// PlayerRepository stores players keyed by id with a unique wallet index
type PlayerRepository struct {
	s *Store
}

func (r *PlayerRepository) Create(ctx context.Context, player *model.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wallet := model.NormalizeWallet(player.Wallet)
	if _, exists := r.s.wallets[wallet]; exists {
		return database.ErrDuplicate
	}
	player.ID = newID("player")
	player.Wallet = wallet
	r.s.players[player.ID] = copyPlayer(player)
	r.s.wallets[wallet] = player.ID
	return nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*model.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.players[id]
	if !ok {
		return nil, nil
	}
	return copyPlayer(p), nil
}

func (r *PlayerRepository) GetByWallet(ctx context.Context, wallet string) (*model.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.wallets[model.NormalizeWallet(wallet)]
	if !ok {
		return nil, nil
	}
	return copyPlayer(r.s.players[id]), nil
}

// Update applies username, level, experience and is_active keys
func (r *PlayerRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.players[id]
	if !ok {
		return nil, nil
	}
	for k, v := range updates {
		switch k {
		case "username":
			p.Username, _ = v.(string)
		case "level":
			p.Level, _ = v.(int)
		case "experience":
			p.Experience, _ = v.(int)
		case "is_active":
			p.IsActive, _ = v.(bool)
		}
	}
	p.UpdatedOn = r.s.now()
	return copyPlayer(p), nil
}

func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	players := make([]*model.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		if p.IsActive {
			players = append(players, copyPlayer(p))
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Level != players[j].Level {
			return players[i].Level > players[j].Level
		}
		if players[i].Experience != players[j].Experience {
			return players[i].Experience > players[j].Experience
		}
		return players[i].ID < players[j].ID
	})
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}
