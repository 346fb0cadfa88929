package marketplace

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

func TestGuardRejectsSameChain(t *testing.T) {
	var g Guard
	ctx, release, err := g.Enter(context.Background())
	require.NoError(t, err)
	require.True(t, g.Held(ctx))

	_, _, err = g.Enter(ctx)
	require.ErrorIs(t, err, domain.ErrReentrantCall)

	release()
	release() // 重复释放无害
	require.False(t, g.Held(context.Background()))
}

func TestGuardBlocksOtherGoroutines(t *testing.T) {
	var g Guard
	_, release, err := g.Enter(context.Background())
	require.NoError(t, err)

	entered := make(chan struct{})
	go func() {
		_, r, err := g.Enter(context.Background())
		if err == nil {
			r()
		}
		close(entered)
	}()

	select {
	case <-entered:
		t.Fatal("second caller entered while guard held")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second caller never entered")
	}
}

func TestGuardsAreIndependent(t *testing.T) {
	var a, b Guard
	ctx, release, err := a.Enter(context.Background())
	require.NoError(t, err)
	defer release()
	require.False(t, b.Held(ctx))
}

func TestKeyLocksCleanup(t *testing.T) {
	k := newKeyLocks()
	key := domain.NewAssetKey(collection, big.NewInt(1))
	unlock := k.lock(key)
	require.Equal(t, 1, k.size())
	unlock()
	require.Zero(t, k.size())
}

func TestReentrantBuyFromTransferIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintApproved(t, 7, seller)
	other := f.mintApproved(t, 8, seller)
	require.NoError(t, f.market.List(ctx, collection, id, big.NewInt(100), seller))
	require.NoError(t, f.market.List(ctx, collection, other, big.NewInt(100), seller))

	var inner []error
	f.registry.OnTransfer = func(cbCtx context.Context, _, _, _ common.Address, _ *big.Int) error {
		inner = append(inner,
			f.market.Buy(cbCtx, collection, id, big.NewInt(100), buyer),
			f.market.Buy(cbCtx, collection, other, big.NewInt(100), buyer),
			f.market.List(cbCtx, collection, other, big.NewInt(1), seller),
			f.market.Cancel(cbCtx, collection, other, seller),
			f.market.Reprice(cbCtx, collection, other, big.NewInt(1), seller),
		)
		_, werr := f.market.Withdraw(cbCtx, seller)
		inner = append(inner, werr)
		return nil
	}

	require.NoError(t, f.market.Buy(ctx, collection, id, big.NewInt(100), buyer))
	require.Len(t, inner, 6)
	for _, err := range inner {
		require.ErrorIs(t, err, domain.ErrReentrantCall)
	}

	// 外层成交只记一次账，另一个挂单未受影响
	require.Equal(t, int64(100), f.balance(t, seller))
	price, _ := f.listing(t, other)
	require.Equal(t, int64(100), price)
}

func TestReentrantWithdrawFromPayoutIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell(t, f, 1, 100, 100)

	var inner error
	f.bank.OnPay = func(cbCtx context.Context, _ common.Address, _ *big.Int) error {
		_, inner = f.market.Withdraw(cbCtx, seller)
		return nil
	}

	paid, err := f.market.Withdraw(ctx, seller)
	require.NoError(t, err)
	require.ErrorIs(t, inner, domain.ErrReentrantCall)
	require.Equal(t, int64(100), paid.Int64())
	require.Equal(t, int64(100), f.bank.Received(seller).Int64())
	require.Equal(t, 1, f.bank.Payouts())
}
