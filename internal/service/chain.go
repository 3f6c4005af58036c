package service

import (
	"context"

	"github.com/forgo/lootbound/api/internal/model"
)

// ChainGateway submits contract calls and reports the ids they produce
type ChainGateway interface {
	RegisterPlayer(ctx context.Context, address string) (string, error)
	CreateParty(ctx context.Context, maxSize int) (*model.ChainReceipt, error)
	MintLoot(ctx context.Context, req model.MintRequest) (*model.ChainReceipt, error)
}
