// Package chain submits game contract calls to an Ethereum node and decodes
// the ids the contracts emit.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgo/lootbound/api/internal/model"
)

var (
	// ErrNotConfigured is returned by a gateway without a node
	ErrNotConfigured = errors.New("chain gateway not configured")
	// ErrEventNotFound means the receipt carried no log for the expected event
	ErrEventNotFound = errors.New("expected event not found in receipt logs")
	// ErrReverted means the transaction was mined with status 0
	ErrReverted = errors.New("transaction reverted")
)

const tracerName = "github.com/forgo/lootbound/api/internal/chain"

// Backend is the node surface the gateway needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Config holds the node and contract settings
type Config struct {
	RPCURL        string
	PrivateKey    string // hex, optional 0x prefix
	ChainID       int64
	PartyRegistry string
	LootManager   string
	Timeout       time.Duration // per call, including waiting for the receipt
	Logger        *slog.Logger  // Optional
}

// Gateway signs transactions locally, submits them through the backend and
// waits for them to be mined. It never retries; callers decide whether to.
type Gateway struct {
	backend      Backend
	auth         *bind.TransactOpts
	registry     *bind.BoundContract
	loot         *bind.BoundContract
	registryAddr common.Address
	lootAddr     common.Address
	timeout      time.Duration
	logger       *slog.Logger
	tracer       trace.Tracer
	closeFn      func()

	// sendMu serializes nonce lookup and submission
	sendMu sync.Mutex
}

// Dial connects to cfg.RPCURL and returns a gateway that owns the client
func Dial(ctx context.Context, cfg Config) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain node: %w", err)
	}
	g, err := New(client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	g.closeFn = client.Close
	return g, nil
}

// New creates a gateway over an existing backend
func New(backend Backend, cfg Config) (*Gateway, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registryAddr := common.HexToAddress(cfg.PartyRegistry)
	lootAddr := common.HexToAddress(cfg.LootManager)
	return &Gateway{
		backend:      backend,
		auth:         auth,
		registry:     bind.NewBoundContract(registryAddr, partyRegistryABI, backend, backend, backend),
		loot:         bind.NewBoundContract(lootAddr, lootManagerABI, backend, backend, backend),
		registryAddr: registryAddr,
		lootAddr:     lootAddr,
		timeout:      timeout,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// From returns the signing account
func (g *Gateway) From() common.Address {
	return g.auth.From
}

// Close releases the node connection when the gateway dialed it
func (g *Gateway) Close() {
	if g.closeFn != nil {
		g.closeFn()
	}
}

// RegisterPlayer registers the sender with the party registry and returns
// the transaction hash. It fails when the registry reverts, which includes
// an already registered player.
func (g *Gateway) RegisterPlayer(ctx context.Context, address string) (string, error) {
	ctx, span := g.start(ctx, "chain.RegisterPlayer", attribute.String("chain.player_address", address))
	defer span.End()

	tx, _, err := g.transact(ctx, g.registry, methodRegisterPlayer)
	if err != nil {
		return "", g.fail(span, err)
	}

	g.logger.InfoContext(ctx, "player registered on chain",
		slog.String("address", address),
		slog.String("tx_hash", tx.Hash().Hex()),
	)
	return tx.Hash().Hex(), nil
}

// CreateParty creates an on-chain party and returns its id from the
// PartyCreated log
func (g *Gateway) CreateParty(ctx context.Context, maxSize int) (*model.ChainReceipt, error) {
	ctx, span := g.start(ctx, "chain.CreateParty", attribute.Int("chain.max_size", maxSize))
	defer span.End()

	tx, receipt, err := g.transact(ctx, g.registry, methodCreateParty, big.NewInt(int64(maxSize)))
	if err != nil {
		return nil, g.fail(span, err)
	}

	var ev partyCreatedEvent
	if err := findEvent(g.registry, g.registryAddr, partyRegistryABI, eventPartyCreated, receipt.Logs, &ev); err != nil {
		return nil, g.fail(span, fmt.Errorf("%s: %w", eventPartyCreated, err))
	}
	partyID := ev.PartyId.String()

	span.SetAttributes(attribute.String("chain.party_id", partyID))
	g.logger.InfoContext(ctx, "party created on chain",
		slog.String("party_id", partyID),
		slog.String("tx_hash", tx.Hash().Hex()),
	)
	return &model.ChainReceipt{ExternalID: partyID, TxHash: tx.Hash().Hex()}, nil
}

// MintLoot mints an item to req.Address and returns its token id from the
// LootMinted log
func (g *Gateway) MintLoot(ctx context.Context, req model.MintRequest) (*model.ChainReceipt, error) {
	ctx, span := g.start(ctx, "chain.MintLoot",
		attribute.String("chain.player_address", req.Address),
		attribute.Int("chain.rarity", req.RarityIndex),
	)
	defer span.End()

	attrs := req.Attributes
	if attrs == nil {
		attrs = []string{}
	}
	tx, receipt, err := g.transact(ctx, g.loot, methodMintLoot,
		common.HexToAddress(req.Address),
		req.Name,
		string(req.LootType),
		big.NewInt(int64(req.RarityIndex)),
		big.NewInt(int64(req.Power)),
		attrs,
	)
	if err != nil {
		return nil, g.fail(span, err)
	}

	var ev lootMintedEvent
	if err := findEvent(g.loot, g.lootAddr, lootManagerABI, eventLootMinted, receipt.Logs, &ev); err != nil {
		return nil, g.fail(span, fmt.Errorf("%s: %w", eventLootMinted, err))
	}
	tokenID := ev.TokenId.String()

	span.SetAttributes(attribute.String("chain.token_id", tokenID))
	g.logger.InfoContext(ctx, "loot minted on chain",
		slog.String("token_id", tokenID),
		slog.String("address", req.Address),
		slog.String("tx_hash", tx.Hash().Hex()),
	)
	return &model.ChainReceipt{ExternalID: tokenID, TxHash: tx.Hash().Hex()}, nil
}

// transact sends one call and waits for a successful receipt, bounded by the
// gateway timeout
func (g *Gateway) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (*types.Transaction, *types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	opts := *g.auth
	opts.Context = ctx

	g.sendMu.Lock()
	tx, err := contract.Transact(&opts, method, args...)
	g.sendMu.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, g.backend, tx)
	if err != nil {
		return nil, nil, fmt.Errorf("waiting for receipt %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, nil, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	return tx, receipt, nil
}

// findEvent unpacks the first log emitted by addr whose topic[0] is the id
// of event
func findEvent(contract *bind.BoundContract, addr common.Address, parsed abi.ABI, event string, logs []*types.Log, out any) error {
	id := parsed.Events[event].ID
	for _, l := range logs {
		if l == nil || l.Address != addr || len(l.Topics) == 0 || l.Topics[0] != id {
			continue
		}
		return contract.UnpackLog(out, event, *l)
	}
	return ErrEventNotFound
}

func (g *Gateway) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func (g *Gateway) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Disabled is the gateway used when no node is configured. Every call fails
// with ErrNotConfigured.
type Disabled struct{}

func (Disabled) RegisterPlayer(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) CreateParty(context.Context, int) (*model.ChainReceipt, error) {
	return nil, ErrNotConfigured
}

func (Disabled) MintLoot(context.Context, model.MintRequest) (*model.ChainReceipt, error) {
	return nil, ErrNotConfigured
}
