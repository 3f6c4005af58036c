package model

// ChainReceipt is the outcome of a mined gateway transaction
type ChainReceipt struct {
	ExternalID string `json:"external_id"` // decoded from the receipt logs
	TxHash     string `json:"tx_hash"`
}

// MintRequest describes an item to mint on chain
type MintRequest struct {
	Address     string
	Name        string
	LootType    EquipmentType
	RarityIndex int
	Power       int
	Attributes  []string
}
