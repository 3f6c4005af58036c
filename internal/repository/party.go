package repository

import (
	"context"
	"errors"
	"time"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// PartyRepository handles party and membership data access. Writes that
// touch more than one record run as a single guarded transaction.
type PartyRepository struct {
	db database.Database
}

// NewPartyRepository creates a new party repository
func NewPartyRepository(db database.Database) *PartyRepository {
	return &PartyRepository{db: db}
}

// activeMembershipExpr selects a player's memberships in active parties
const activeMembershipExpr = `(SELECT VALUE id FROM party_member WHERE player = type::record($player) AND party.is_active = true)`

// Create stores the party and its leader membership in one transaction
func (r *PartyRepository) Create(ctx context.Context, party *model.Party, leader *model.PartyMember) error {
	tx := database.NewTxBuilder().
		Var("player", leader.PlayerID).
		Var("name", party.Name).
		Var("max_size", party.MaxSize).
		Var("chain_id", party.ChainID).
		Var("external_id", nilIfEmpty(party.ExternalID)).
		Var("tx_hash", nilIfEmpty(party.TxHash)).
		Var("role", leader.Role).
		Var("now", formatTime(party.CreatedOn)).
		Var("joined_at", formatTime(leader.JoinedAt))

	tx.Let("existing", activeMembershipExpr).
		Guard("array::len($existing) > 0", model.GuardAlreadyInParty).
		Let("party", `(CREATE ONLY party CONTENT {
			name: $name,
			max_size: $max_size,
			chain_id: $chain_id,
			external_id: $external_id ?? NONE,
			tx_hash: $tx_hash ?? NONE,
			is_active: true,
			created_on: <datetime> $now,
			updated_on: <datetime> $now
		})`).
		Let("member", `(CREATE ONLY party_member CONTENT {
			party: $party.id,
			player: type::record($player),
			role: $role,
			is_leader: true,
			joined_at: <datetime> $joined_at
		})`).
		Add("RETURN [$party.id, $member.id]")

	results, err := tx.Execute(ctx, r.db)
	if err != nil {
		return err
	}

	ids := extractIDs(lastStatement(results))
	if len(ids) != 2 {
		return errors.New("unexpected result format")
	}
	party.ID = ids[0]
	leader.ID = ids[1]
	leader.PartyID = party.ID
	return nil
}

// GetByID returns the party with its members in join order, or nil
func (r *PartyRepository) GetByID(ctx context.Context, id string) (*model.Party, error) {
	if !isRecordOf(id, "party") {
		return nil, nil
	}
	query := `
		SELECT * FROM type::record($id);
		SELECT * FROM party_member WHERE party = type::record($id) ORDER BY joined_at ASC;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}

	records := statementRecords(results, 0)
	if len(records) == 0 {
		return nil, nil
	}
	party := parseParty(records[0])
	for _, rec := range statementRecords(results, 1) {
		party.Members = append(party.Members, parseMember(rec))
	}
	model.SortMembers(party.Members)
	return party, nil
}

// GetActiveMembership returns the player's membership in an active party, or nil
func (r *PartyRepository) GetActiveMembership(ctx context.Context, playerID string) (*model.PartyMember, error) {
	if !isRecordOf(playerID, "player") {
		return nil, nil
	}
	query := `SELECT * FROM party_member WHERE player = type::record($player) AND party.is_active = true LIMIT 1`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"player": playerID})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := firstRecord(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parseMember(data), nil
}

// AddMember inserts a membership when the party is active and has room and
// the player holds no other active membership
func (r *PartyRepository) AddMember(ctx context.Context, member *model.PartyMember, maxSize int) error {
	tx := database.NewTxBuilder().
		Var("party", member.PartyID).
		Var("player", member.PlayerID).
		Var("max_size", maxSize).
		Var("role", member.Role).
		Var("joined_at", formatTime(member.JoinedAt))

	tx.Let("active", `(SELECT VALUE is_active FROM type::record($party))`).
		Guard("$active[0] != true", model.GuardPartyInactive).
		Let("count", `count((SELECT VALUE id FROM party_member WHERE party = type::record($party)))`).
		Guard("$count >= $max_size", model.GuardPartyFull).
		Let("dup", `(SELECT VALUE id FROM party_member WHERE party = type::record($party) AND player = type::record($player))`).
		Guard("array::len($dup) > 0", model.GuardAlreadyMember).
		Let("existing", activeMembershipExpr).
		Guard("array::len($existing) > 0", model.GuardAlreadyInParty).
		Let("member", `(CREATE ONLY party_member CONTENT {
			party: type::record($party),
			player: type::record($player),
			role: $role,
			is_leader: false,
			joined_at: <datetime> $joined_at
		})`).
		Add("UPDATE type::record($party) SET updated_on = <datetime> $joined_at").
		Add("RETURN [$member.id]")

	results, err := tx.Execute(ctx, r.db)
	if err != nil {
		return err
	}
	ids := extractIDs(lastStatement(results))
	if len(ids) != 1 {
		return errors.New("unexpected result format")
	}
	member.ID = ids[0]
	return nil
}

// RemoveMember deletes the membership, promotes successorID when set and
// deactivates the party when deactivate is true, in one transaction
func (r *PartyRepository) RemoveMember(ctx context.Context, member *model.PartyMember, successorID string, deactivate bool, now time.Time) error {
	tx := database.NewTxBuilder().
		Var("member", member.ID).
		Var("party", member.PartyID).
		Var("now", formatTime(now))

	tx.Let("gone", `(DELETE type::record($member) RETURN BEFORE)`).
		Guard("array::len($gone) = 0", model.GuardNotMember)

	if successorID != "" {
		tx.Var("successor", successorID).
			Let("next", `(UPDATE type::record($successor) SET is_leader = true, role = "leader" WHERE party = type::record($party) RETURN AFTER)`).
			Guard("array::len($next) = 0", model.GuardNotMember)
	}

	if deactivate {
		tx.Add("UPDATE type::record($party) SET is_active = false, updated_on = <datetime> $now")
	} else {
		tx.Add("UPDATE type::record($party) SET updated_on = <datetime> $now")
	}

	_, err := tx.Execute(ctx, r.db)
	return err
}

// Deactivate marks the party inactive. Member rows are kept.
func (r *PartyRepository) Deactivate(ctx context.Context, partyID string, now time.Time) error {
	query := `UPDATE type::record($id) SET is_active = false, updated_on = <datetime> $now`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": partyID, "now": formatTime(now)})
}

// UpdateName renames the party and returns it with members, or nil if missing
func (r *PartyRepository) UpdateName(ctx context.Context, partyID, name string, now time.Time) (*model.Party, error) {
	if !isRecordOf(partyID, "party") {
		return nil, nil
	}
	query := `UPDATE type::record($id) SET name = $name, updated_on = <datetime> $now`
	if err := r.db.Execute(ctx, query, map[string]interface{}{"id": partyID, "name": name, "now": formatTime(now)}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, partyID)
}

func parseParty(data map[string]interface{}) *model.Party {
	return &model.Party{
		ID:         convertSurrealID(data["id"]),
		Name:       getString(data, "name"),
		MaxSize:    getInt(data, "max_size"),
		ChainID:    getInt64(data, "chain_id"),
		ExternalID: getString(data, "external_id"),
		TxHash:     getString(data, "tx_hash"),
		IsActive:   getBool(data, "is_active"),
		CreatedOn:  parseTime(data["created_on"]),
		UpdatedOn:  parseTime(data["updated_on"]),
	}
}

func parseMember(data map[string]interface{}) *model.PartyMember {
	return &model.PartyMember{
		ID:       convertSurrealID(data["id"]),
		PartyID:  getRecordID(data, "party"),
		PlayerID: getRecordID(data, "player"),
		Role:     getString(data, "role"),
		IsLeader: getBool(data, "is_leader"),
		JoinedAt: parseTime(data["joined_at"]),
	}
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
