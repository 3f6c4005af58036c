package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Method and event names on the game contracts
const (
	methodRegisterPlayer = "registerPlayer"
	methodCreateParty    = "createParty"
	methodMintLoot       = "mintLoot"

	eventPartyCreated = "PartyCreated"
	eventLootMinted   = "LootMinted"
)

const partyRegistryJSON = `[
	{"type":"function","name":"registerPlayer","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"createParty","inputs":[{"name":"maxSize","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"event","name":"PartyCreated","anonymous":false,"inputs":[
		{"name":"partyId","type":"uint256","indexed":true},
		{"name":"leader","type":"address","indexed":true},
		{"name":"maxSize","type":"uint256","indexed":false}
	]}
]`

const lootManagerJSON = `[
	{"type":"function","name":"mintLoot","inputs":[
		{"name":"to","type":"address"},
		{"name":"name","type":"string"},
		{"name":"lootType","type":"string"},
		{"name":"rarity","type":"uint256"},
		{"name":"power","type":"uint256"},
		{"name":"attributes","type":"string[]"}
	],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"event","name":"LootMinted","anonymous":false,"inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"owner","type":"address","indexed":true},
		{"name":"name","type":"string","indexed":false}
	]}
]`

var (
	partyRegistryABI = mustParseABI(partyRegistryJSON)
	lootManagerABI   = mustParseABI(lootManagerJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("chain: invalid contract abi: " + err.Error())
	}
	return parsed
}

// Field names follow abi.ToCamelCase of the event inputs.

type partyCreatedEvent struct {
	PartyId *big.Int
	Leader  common.Address
	MaxSize *big.Int
}

type lootMintedEvent struct {
	TokenId *big.Int
	Owner   common.Address
	Name    string
}
