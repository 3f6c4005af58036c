// Package memory is an in-process store implementing the service repository
// interfaces. One mutex guards every table, so each method is atomic in the
// same way a SurrealDB transaction is. Records are copied in and out.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// Store holds every table
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	players   map[string]*model.Player
	wallets   map[string]string // wallet -> player id
	parties   map[string]*model.Party
	members   map[string]*model.PartyMember
	equipment map[string]*model.Equipment
	tokens    map[string]string // token id -> equipment id
	orders    map[string]*model.LendingOrder
}

// New creates an empty store
func New() *Store {
	return &Store{
		now:       time.Now,
		players:   make(map[string]*model.Player),
		wallets:   make(map[string]string),
		parties:   make(map[string]*model.Party),
		members:   make(map[string]*model.PartyMember),
		equipment: make(map[string]*model.Equipment),
		tokens:    make(map[string]string),
		orders:    make(map[string]*model.LendingOrder),
	}
}

// Players returns the player repository view
func (s *Store) Players() *PlayerRepository { return &PlayerRepository{s: s} }

// Parties returns the party repository view
func (s *Store) Parties() *PartyRepository { return &PartyRepository{s: s} }

// Equipment returns the equipment repository view
func (s *Store) Equipment() *EquipmentRepository { return &EquipmentRepository{s: s} }

// Lending returns the lending-order repository view
func (s *Store) Lending() *LendingRepository { return &LendingRepository{s: s} }

func newID(table string) string {
	return table + ":" + uuid.NewString()
}

func guard(code string) error {
	return &database.GuardError{Code: code}
}

func copyPlayer(p *model.Player) *model.Player {
	c := *p
	return &c
}

func copyMember(m *model.PartyMember) *model.PartyMember {
	c := *m
	return &c
}

func copyEquipment(e *model.Equipment) *model.Equipment {
	c := *e
	c.Attributes = append([]string(nil), e.Attributes...)
	if e.SpecialAbility != nil {
		a := *e.SpecialAbility
		c.SpecialAbility = &a
	}
	c.ActiveOrders = nil
	return &c
}

func copyOrder(o *model.LendingOrder) *model.LendingOrder {
	c := *o
	if o.BorrowerID != nil {
		b := *o.BorrowerID
		c.BorrowerID = &b
	}
	c.Equipment = nil
	return &c
}

// sortNewest orders by creation time descending, then id descending
func sortNewest(orders []*model.LendingOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}
