package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/lootbound/api/internal/middleware"
	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/repository/memory"
	"github.com/forgo/lootbound/api/internal/service"
)

// ============================================================================
// Test server
// ============================================================================

type fakeChain struct {
	seq     atomic.Int64
	mintErr error
}

func (c *fakeChain) RegisterPlayer(context.Context, string) (string, error) { return "0xreg", nil }

func (c *fakeChain) CreateParty(context.Context, int) (*model.ChainReceipt, error) {
	n := c.seq.Add(1)
	return &model.ChainReceipt{ExternalID: fmt.Sprint(n), TxHash: fmt.Sprintf("0xparty%d", n)}, nil
}

func (c *fakeChain) MintLoot(context.Context, model.MintRequest) (*model.ChainReceipt, error) {
	if c.mintErr != nil {
		return nil, c.mintErr
	}
	n := c.seq.Add(1)
	return &model.ChainReceipt{ExternalID: fmt.Sprint(100 + n), TxHash: fmt.Sprintf("0xmint%d", n)}, nil
}

type testAPI struct {
	t      *testing.T
	srv    http.Handler
	chain  *fakeChain
	wallet atomic.Int64
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	chain := &fakeChain{}
	locks := service.NewKeyedMutex()

	players := service.NewPlayerService(service.PlayerServiceConfig{Repo: store.Players()})
	parties := service.NewPartyService(service.PartyServiceConfig{
		Repo: store.Parties(), PlayerRepo: store.Players(), Chain: chain, Locks: locks,
	})
	lending := service.NewLendingService(service.LendingServiceConfig{
		Repo: store.Lending(), EquipmentRepo: store.Equipment(), Locks: locks,
	})
	loot := service.NewLootService(service.LootServiceConfig{
		Repo: store.Equipment(), PlayerRepo: store.Players(), LendingRepo: store.Lending(), Chain: chain, Locks: locks,
	})

	mux := http.NewServeMux()
	RegisterRoutes(mux, Handlers{
		Players: NewPlayerHandler(players),
		Parties: NewPartyHandler(parties),
		Loot:    NewLootHandler(loot),
		Lending: NewLendingHandler(lending),
		Health:  NewHealthHandler(nil),
	})
	return &testAPI{t: t, srv: middleware.Identity(mux), chain: chain}
}

type apiResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

func (a *apiResponse) data() map[string]any {
	d, _ := a.Body["data"].(map[string]any)
	return d
}

func (a *apiResponse) list() []any {
	l, _ := a.Body["data"].([]any)
	return l
}

func (api *testAPI) do(method, path, playerID string, body any) *apiResponse {
	api.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(api.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if playerID != "" {
		req.Header.Set(middleware.PlayerIDHeader, playerID)
	}
	rr := httptest.NewRecorder()
	api.srv.ServeHTTP(rr, req)

	resp := &apiResponse{Code: rr.Code, Header: rr.Header()}
	if rr.Body.Len() > 0 {
		require.NoError(api.t, json.Unmarshal(rr.Body.Bytes(), &resp.Body), rr.Body.String())
	}
	return resp
}

// connect registers a player and returns its id
func (api *testAPI) connect(name string) string {
	api.t.Helper()
	wallet := fmt.Sprintf("0x%040x", api.wallet.Add(1))
	resp := api.do(http.MethodPost, "/v1/players/connect", "", map[string]string{"wallet": wallet, "username": name})
	require.Equal(api.t, http.StatusOK, resp.Code)
	return resp.data()["id"].(string)
}

func address(n int) string { return fmt.Sprintf("0x%040x", n) }

// ============================================================================
// Players
// ============================================================================

func TestPlayers(t *testing.T) {
	api := newTestAPI(t)
	id := api.connect("alice")

	t.Run("get me", func(t *testing.T) {
		resp := api.do(http.MethodGet, "/v1/players/me", id, nil)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "alice", resp.data()["username"])
	})

	t.Run("get by wallet in any case", func(t *testing.T) {
		resp := api.do(http.MethodGet, "/v1/wallets/0X"+fmt.Sprintf("%040X", 1), "", nil)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, id, resp.data()["id"])
	})

	t.Run("update me", func(t *testing.T) {
		resp := api.do(http.MethodPatch, "/v1/players/me", id, map[string]any{"level": 7})
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.EqualValues(t, 7, resp.data()["level"])
	})

	t.Run("leaderboard", func(t *testing.T) {
		api.connect("bob")
		resp := api.do(http.MethodGet, "/v1/leaderboard?limit=1", "", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Len(t, resp.list(), 1)
		assert.Equal(t, id, resp.list()[0].(map[string]any)["id"])
	})

	t.Run("unknown player", func(t *testing.T) {
		resp := api.do(http.MethodGet, "/v1/players/player:missing", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	})

	t.Run("invalid wallet", func(t *testing.T) {
		resp := api.do(http.MethodPost, "/v1/players/connect", "", map[string]string{"wallet": "nope"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.NotEmpty(t, resp.Body["errors"])
	})

	t.Run("leave", func(t *testing.T) {
		resp := api.do(http.MethodPost, "/v1/players/leave", id, nil)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestMissingPlayerHeader(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/v1/parties", "/v1/loot/generate", "/v1/lending/orders"} {
		resp := api.do(http.MethodPost, path, "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
	resp := api.do(http.MethodGet, "/v1/players/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

// ============================================================================
// Parties
// ============================================================================

func TestPartyLifecycle(t *testing.T) {
	api := newTestAPI(t)
	leader := api.connect("leader")
	member := api.connect("member")
	late := api.connect("late")

	resp := api.do(http.MethodPost, "/v1/parties", leader, map[string]any{
		"name": "Raiders", "address": address(1), "max_size": 2,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	partyID := resp.data()["id"].(string)
	assert.Equal(t, "1", resp.data()["external_id"])
	assert.NotEmpty(t, resp.Body["_links"])

	resp = api.do(http.MethodPost, "/v1/parties/"+partyID+"/join", member, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.data()["members"], 2)

	resp = api.do(http.MethodPost, "/v1/parties/"+partyID+"/join", late, map[string]string{"role": "healer"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.do(http.MethodPatch, "/v1/parties/"+partyID, member, map[string]string{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.do(http.MethodGet, "/v1/players/me/party", member, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, partyID, resp.data()["id"])

	resp = api.do(http.MethodPost, "/v1/parties/"+partyID+"/leave", leader, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.do(http.MethodGet, "/v1/parties/"+partyID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	members := resp.data()["members"].([]any)
	require.Len(t, members, 1)
	assert.Equal(t, member, members[0].(map[string]any)["player_id"])
	assert.Equal(t, true, members[0].(map[string]any)["is_leader"])

	resp = api.do(http.MethodPost, "/v1/parties/"+partyID+"/disband", member, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.do(http.MethodGet, "/v1/players/me/party", member, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Nil(t, resp.Body["data"])
}

func TestCreateParty_BadInput(t *testing.T) {
	api := newTestAPI(t)
	leader := api.connect("leader")

	resp := api.do(http.MethodPost, "/v1/parties", leader, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.do(http.MethodPost, "/v1/parties", leader, map[string]any{"name": "x", "address": address(1), "bogus": true})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.do(http.MethodPost, "/v1/parties", leader, map[string]any{"name": "", "address": "0x1", "max_size": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Len(t, resp.Body["errors"], 3)

	resp = api.do(http.MethodGet, "/v1/parties/party:missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// ============================================================================
// Loot and lending
// ============================================================================

func TestLootAndLending(t *testing.T) {
	api := newTestAPI(t)
	lender := api.connect("lender")
	borrower := api.connect("borrower")

	resp := api.do(http.MethodPost, "/v1/loot/generate", lender, map[string]any{
		"address": address(9), "level": 50, "equipment_type": "weapon",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	item := resp.data()
	equipmentID := item["id"].(string)
	tokenID := item["token_id"].(string)
	assert.Equal(t, "weapon", item["equipment_type"])

	resp = api.do(http.MethodGet, "/v1/equipment/"+tokenID, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, equipmentID, resp.data()["id"])

	resp = api.do(http.MethodGet, "/v1/players/"+lender+"/loot?limit=10", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.list(), 1)
	assert.EqualValues(t, 1, resp.Body["pagination"].(map[string]any)["total"])

	resp = api.do(http.MethodPatch, "/v1/equipment/"+equipmentID+"/lendable", borrower, map[string]bool{"is_lendable": false})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.do(http.MethodPost, "/v1/lending/orders", lender, map[string]any{
		"equipment_id": equipmentID, "price": 5, "collateral": 50,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	orderID := resp.data()["id"].(string)

	resp = api.do(http.MethodPost, "/v1/lending/orders", lender, map[string]any{
		"equipment_id": equipmentID, "price": 6, "collateral": 50,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.do(http.MethodGet, "/v1/marketplace?type=weapon&maxPrice=10", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, resp.list(), 1)
	pagination := resp.Body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total"])
	assert.Equal(t, false, pagination["has_more"])

	resp = api.do(http.MethodGet, "/v1/marketplace?minPrice=6", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.list())

	resp = api.do(http.MethodPost, "/v1/lending/orders/"+orderID+"/cancel", borrower, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.do(http.MethodPost, "/v1/lending/orders/"+orderID+"/borrow", borrower, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "completed", resp.data()["status"])
	assert.Equal(t, borrower, resp.data()["borrower_id"])

	resp = api.do(http.MethodPost, "/v1/lending/orders/"+orderID+"/borrow", borrower, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.do(http.MethodGet, "/v1/players/me/borrowed", borrower, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.list(), 1)

	resp = api.do(http.MethodGet, "/v1/players/me/listings", lender, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.list(), 1)

	resp = api.do(http.MethodPatch, "/v1/lending/orders/"+orderID, lender, map[string]string{"status": "active"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestMarketplace_InvalidQuery(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/v1/marketplace?rarity=shiny&limit=ten&minPrice=abc", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Len(t, resp.Body["errors"], 3)

	resp = api.do(http.MethodGet, "/v1/marketplace?minPrice=10&maxPrice=1", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestGenerateLoot_ChainFailure(t *testing.T) {
	api := newTestAPI(t)
	player := api.connect("unlucky")
	api.chain.mintErr = errors.New("execution reverted")

	resp := api.do(http.MethodPost, "/v1/loot/generate", player, map[string]any{"address": address(3), "level": 1})

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.NotContains(t, resp.Body["detail"], "reverted")
}

// ============================================================================
// Health
// ============================================================================

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("down") }))

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(nil).Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
