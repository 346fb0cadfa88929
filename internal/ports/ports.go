package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/internal/events"
)

// OwnershipOracle is the system of record for asset ownership and transfer approval.
//
// NOTE: the marketplace only reads ownership/approval and calls Transfer once per
// successful purchase; it never mutates ownership state any other way.
type OwnershipOracle interface {
	OwnerOf(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error)
	// GetApproved returns the zero address when nobody is approved.
	GetApproved(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error)
	// Transfer must move ownership atomically or leave it unchanged.
	Transfer(ctx context.Context, from, to, collection common.Address, tokenID *big.Int) error
}

// PaymentChannel pays withdrawn proceeds out to a party.
type PaymentChannel interface {
	PayTo(ctx context.Context, to common.Address, amount *big.Int) error
}

// EventSink receives notifications for committed operations.
type EventSink interface {
	Publish(ctx context.Context, ev events.Event)
}

// DepositVerifier checks that a buyer actually paid the marketplace on chain.
//
// Claim verifies the payment referenced by ref (sender == payer, recipient is the
// marketplace, executed successfully), marks it used and returns the value paid.
// Release undoes a Claim when the purchase it funded did not go through.
type DepositVerifier interface {
	Claim(ctx context.Context, ref common.Hash, payer common.Address) (*big.Int, error)
	Release(ctx context.Context, ref common.Hash) error
}
