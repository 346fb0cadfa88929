package marketplace

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
)

// List 挂单。检查顺序固定：tokenId > 价格 > 所有权 > 授权 > 是否已挂单
func (m *Marketplace) List(ctx context.Context, collection common.Address, tokenID, price *big.Int, caller common.Address) error {
	key := domain.NewAssetKey(collection, tokenID)
	entry := m.log("list", key, caller)
	if err := m.rejectReentry(ctx); err != nil {
		return fail(entry, err)
	}
	if err := requireTokenID(tokenID); err != nil {
		return fail(entry, err)
	}

	if err := requirePositivePrice(price); err != nil {
		return fail(entry, err)
	}

	unlock := m.keys.lock(key)
	defer unlock()

	owner, err := m.ownerOf(ctx, key)
	if err != nil {
		return fail(entry, err)
	}
	if err := requireOwner(owner, caller); err != nil {
		return fail(entry, err)
	}

	approved, err := m.oracle.GetApproved(ctx, collection, key.TokenIDBig())
	if err != nil {
		return fail(entry, errors.Wrapf(err, "approval of %s", key))
	}
	if err := requireApproved(approved, m.address); err != nil {
		return fail(entry, err)
	}

	current, err := m.listings.Get(key)
	if err != nil {
		return fail(entry, errors.Wrap(err, "read listing"))
	}
	if err := requireNotListed(current); err != nil {
		return fail(entry, err)
	}

	listing := domain.Listing{Price: new(big.Int).Set(price), Seller: caller}
	if err := m.listings.Put(key, listing); err != nil {
		return fail(entry, errors.Wrap(err, "store listing"))
	}

	entry.WithField("price", price.String()).Info("item listed")
	m.sink.Publish(ctx, &events.ItemListed{
		Seller:     caller,
		Collection: collection,
		TokenID:    key.TokenIDBig(),
		Price:      new(big.Int).Set(price),
		Timestamp:  m.now(),
	})
	return nil
}

// Cancel 撤单。所有权在调用时实时校验，挂单后转走资产的原卖家不能再撤单
func (m *Marketplace) Cancel(ctx context.Context, collection common.Address, tokenID *big.Int, caller common.Address) error {
	key := domain.NewAssetKey(collection, tokenID)
	entry := m.log("cancel", key, caller)
	if err := m.rejectReentry(ctx); err != nil {
		return fail(entry, err)
	}
	if err := requireTokenID(tokenID); err != nil {
		return fail(entry, err)
	}

	unlock := m.keys.lock(key)
	defer unlock()

	if _, err := m.ownedListing(ctx, key, caller); err != nil {
		return fail(entry, err)
	}
	if err := m.listings.Delete(key); err != nil {
		return fail(entry, errors.Wrap(err, "delete listing"))
	}

	entry.Info("item canceled")
	m.sink.Publish(ctx, &events.ItemCanceled{
		Owner:      caller,
		Collection: collection,
		TokenID:    key.TokenIDBig(),
		Timestamp:  m.now(),
	})
	return nil
}

// Reprice 改价。不校验新价格是否为正：改成 0 等同于下架
func (m *Marketplace) Reprice(ctx context.Context, collection common.Address, tokenID, newPrice *big.Int, caller common.Address) error {
	key := domain.NewAssetKey(collection, tokenID)
	entry := m.log("reprice", key, caller)
	if err := m.rejectReentry(ctx); err != nil {
		return fail(entry, err)
	}
	if err := requireTokenID(tokenID); err != nil {
		return fail(entry, err)
	}
	if err := requireNonNegative(newPrice); err != nil {
		return fail(entry, err)
	}

	unlock := m.keys.lock(key)
	defer unlock()

	current, err := m.ownedListing(ctx, key, caller)
	if err != nil {
		return fail(entry, err)
	}
	current.Price = new(big.Int).Set(newPrice)
	if err := m.listings.Put(key, current); err != nil {
		return fail(entry, errors.Wrap(err, "store listing"))
	}

	entry.WithField("price", newPrice.String()).Info("item updated")
	m.sink.Publish(ctx, &events.ItemUpdated{
		Owner:      caller,
		Collection: collection,
		TokenID:    key.TokenIDBig(),
		Price:      new(big.Int).Set(newPrice),
		Timestamp:  m.now(),
	})
	return nil
}

// ownedListing cancel/reprice 共用的检查：先所有权，后挂单存在
func (m *Marketplace) ownedListing(ctx context.Context, key domain.AssetKey, caller common.Address) (domain.Listing, error) {
	owner, err := m.ownerOf(ctx, key)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := requireOwner(owner, caller); err != nil {
		return domain.Listing{}, err
	}
	current, err := m.listings.Get(key)
	if err != nil {
		return domain.Listing{}, errors.Wrap(err, "read listing")
	}
	if err := requireListed(current); err != nil {
		return domain.Listing{}, err
	}
	return current, nil
}
