package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

// 前置条件检查：纯函数，按固定顺序在每个操作开头显式调用。

func requireTokenID(tokenID *big.Int) error {
	if !domain.ValidTokenID(tokenID) {
		return domain.ErrInvalidTokenID
	}
	return nil
}

func requirePositivePrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return domain.ErrInvalidPrice
	}
	return nil
}

func requireNonNegative(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

func requireOwner(owner, caller common.Address) error {
	if owner != caller {
		return domain.ErrNotOwner
	}
	return nil
}

func requireApproved(approved, marketplace common.Address) error {
	if approved != marketplace {
		return domain.ErrNotApproved
	}
	return nil
}

func requireNotListed(l domain.Listing) error {
	if l.IsListed() {
		return domain.ErrAlreadyListed
	}
	return nil
}

func requireListed(l domain.Listing) error {
	if !l.IsListed() {
		return domain.ErrNotListed
	}
	return nil
}

func requirePriceMet(payment *big.Int, l domain.Listing) error {
	if payment.Cmp(l.Price) < 0 {
		return domain.ErrPriceNotMet
	}
	return nil
}

func requireProceeds(balance *big.Int) error {
	if balance == nil || balance.Sign() <= 0 {
		return domain.ErrNoProceeds
	}
	return nil
}
