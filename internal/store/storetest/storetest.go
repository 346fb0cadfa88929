// Package storetest 提供两种存储实现共用的一致性测试。
package storetest

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/store"
)

var (
	collection = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	seller     = common.HexToAddress("0x000000000000000000000000000000000000005e")
)

// RunListingStore 挂单表行为
func RunListingStore(t *testing.T, s store.ListingStore) {
	t.Helper()
	key := domain.NewAssetKey(collection, big.NewInt(7))

	got, err := s.Get(key)
	require.NoError(t, err)
	require.False(t, got.IsListed())
	require.NotNil(t, got.Price)

	require.NoError(t, s.Put(key, domain.Listing{Price: big.NewInt(100), Seller: seller}))
	got, err = s.Get(key)
	require.NoError(t, err)
	require.True(t, got.IsListed())
	require.Equal(t, int64(100), got.Price.Int64())
	require.Equal(t, seller, got.Seller)

	// 返回值修改不能影响存储
	got.Price.SetInt64(1)
	again, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, int64(100), again.Price.Int64())

	other, err := s.Get(domain.NewAssetKey(collection, big.NewInt(8)))
	require.NoError(t, err)
	require.False(t, other.IsListed())

	require.NoError(t, s.Delete(key))
	got, err = s.Get(key)
	require.NoError(t, err)
	require.False(t, got.IsListed())

	// 删除不存在的 key 不报错
	require.NoError(t, s.Delete(key))
}

// RunProceedsStore 收益表行为
func RunProceedsStore(t *testing.T, s store.ProceedsStore) {
	t.Helper()

	bal, err := s.Balance(seller)
	require.NoError(t, err)
	require.Equal(t, 0, bal.Sign())

	require.NoError(t, s.Credit(seller, big.NewInt(100)))
	require.NoError(t, s.Credit(seller, big.NewInt(50)))
	bal, err = s.Balance(seller)
	require.NoError(t, err)
	require.Equal(t, int64(150), bal.Int64())

	bal.SetInt64(0)
	bal, err = s.Balance(seller)
	require.NoError(t, err)
	require.Equal(t, int64(150), bal.Int64())

	require.ErrorIs(t, s.Credit(seller, big.NewInt(-1)), domain.ErrInvalidAmount)
	require.Error(t, s.Debit(seller, big.NewInt(151)))

	require.NoError(t, s.Debit(seller, big.NewInt(50)))
	bal, err = s.Balance(seller)
	require.NoError(t, err)
	require.Equal(t, int64(100), bal.Int64())

	require.NoError(t, s.Reset(seller))
	bal, err = s.Balance(seller)
	require.NoError(t, err)
	require.Equal(t, 0, bal.Sign())

	require.NoError(t, s.Reset(common.HexToAddress("0xdead")))
}

// RunDepositStore 已用付款表行为
func RunDepositStore(t *testing.T, s store.DepositStore) {
	t.Helper()
	ref := common.HexToHash("0x01")

	require.NoError(t, s.Claim(ref))
	require.ErrorIs(t, s.Claim(ref), domain.ErrDepositUsed)
	require.NoError(t, s.Claim(common.HexToHash("0x02")))

	require.NoError(t, s.Release(ref))
	require.NoError(t, s.Claim(ref))

	// 释放不存在的记录不报错
	require.NoError(t, s.Release(common.HexToHash("0x03")))
}
