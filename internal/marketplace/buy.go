package marketplace

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
)

// Buy 购买。payment 为买家随调用附带的金额，可以超过挂单价，超出部分不退、全部记给卖家。
// 配置了 DepositVerifier 时 payment 无从核实，直接返回 ErrDepositRequired，改用 BuyWithDeposit。
//
// 状态变更顺序固定：删除挂单 -> 给卖家记账 -> 调用 oracle 转移资产 -> 发事件。
// 内部状态在外部调用之前全部写完；转移失败时回滚前两步。
func (m *Marketplace) Buy(ctx context.Context, collection common.Address, tokenID, payment *big.Int, caller common.Address) error {
	if m.deposits != nil {
		key := domain.NewAssetKey(collection, tokenID)
		return fail(m.log("buy", key, caller), domain.ErrDepositRequired)
	}
	return m.buy(ctx, collection, tokenID, payment, caller)
}

// BuyWithDeposit 用链上付款交易 ref 购买，金额取交易实际转入的值。
// 付款先被标记为已使用，购买失败时归还，可用于下一次购买。
func (m *Marketplace) BuyWithDeposit(ctx context.Context, collection common.Address, tokenID *big.Int, ref common.Hash, caller common.Address) (*big.Int, error) {
	key := domain.NewAssetKey(collection, tokenID)
	entry := m.log("buy", key, caller).WithField("deposit", ref.Hex())

	if err := m.rejectReentry(ctx); err != nil {
		return nil, fail(entry, err)
	}
	if err := requireTokenID(tokenID); err != nil {
		return nil, fail(entry, err)
	}
	if m.deposits == nil {
		return nil, fail(entry, domain.ErrDepositUnsupported)
	}

	amount, err := m.deposits.Claim(ctx, ref, caller)
	if err != nil {
		return nil, fail(entry, err)
	}
	if err := m.buy(ctx, collection, tokenID, amount, caller); err != nil {
		if rerr := m.deposits.Release(context.WithoutCancel(ctx), ref); rerr != nil {
			entry.WithError(rerr).Error("release deposit failed")
		}
		return nil, err
	}
	return amount, nil
}

func (m *Marketplace) buy(ctx context.Context, collection common.Address, tokenID, payment *big.Int, caller common.Address) error {
	key := domain.NewAssetKey(collection, tokenID)
	entry := m.log("buy", key, caller)

	ctx, release, err := m.guard.Enter(ctx)
	if err != nil {
		return fail(entry, err)
	}
	defer release()

	if err := requireTokenID(tokenID); err != nil {
		return fail(entry, err)
	}
	if err := requireNonNegative(payment); err != nil {
		return fail(entry, err)
	}

	unlock := m.keys.lock(key)
	defer unlock()

	listing, err := m.listings.Get(key)
	if err != nil {
		return fail(entry, errors.Wrap(err, "read listing"))
	}
	if err := requireListed(listing); err != nil {
		return fail(entry, err)
	}
	if err := requirePriceMet(payment, listing); err != nil {
		return fail(entry, err)
	}
	entry = entry.WithFields(logrus.Fields{
		"seller":  listing.Seller.Hex(),
		"price":   listing.Price.String(),
		"payment": payment.String(),
	})

	amount := new(big.Int).Set(payment)

	// (a) 先删除挂单
	if err := m.listings.Delete(key); err != nil {
		return fail(entry, errors.Wrap(err, "delete listing"))
	}
	// (b) 给卖家记账
	if err := m.proceeds.Credit(listing.Seller, amount); err != nil {
		m.restoreListing(entry, key, listing)
		return fail(entry, errors.Wrap(err, "credit seller"))
	}
	// (c) 外部调用：转移资产
	if err := m.oracle.Transfer(ctx, listing.Seller, caller, collection, key.TokenIDBig()); err != nil {
		if derr := m.proceeds.Debit(listing.Seller, amount); derr != nil {
			entry.WithError(derr).Error("rollback credit failed")
		}
		m.restoreListing(entry, key, listing)
		return fail(entry, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err))
	}

	entry.Info("item bought")
	// (d) 通知
	m.sink.Publish(ctx, &events.ItemBought{
		Buyer:      caller,
		Collection: collection,
		TokenID:    key.TokenIDBig(),
		Price:      new(big.Int).Set(amount),
		Timestamp:  m.now(),
	})
	return nil
}

func (m *Marketplace) restoreListing(entry *logrus.Entry, key domain.AssetKey, listing domain.Listing) {
	if err := m.listings.Put(key, listing); err != nil {
		entry.WithError(err).Error("rollback listing failed")
	}
}
