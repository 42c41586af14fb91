package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveID hashes human-readable parts into a 32-byte ledger key, e.g.
// DeriveID("batch", "B1"). The ledger itself never interprets keys.
func DeriveID(parts ...string) common.Hash {
	return crypto.Keccak256Hash([]byte(strings.Join(parts, ":")))
}

// NoBidder is the highest-bidder value of an auction without bids.
var NoBidder = common.Address{}
