package domain

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestListingSentinel(t *testing.T) {
	require.False(t, EmptyListing().IsListed())
	require.False(t, Listing{}.IsListed())
	require.True(t, Listing{Price: big.NewInt(1)}.IsListed())
}

func TestListingCloneIsDeep(t *testing.T) {
	l := Listing{Price: big.NewInt(100), Seller: common.HexToAddress("0x01")}
	c := l.Clone()
	c.Price.SetInt64(5)
	require.Equal(t, int64(100), l.Price.Int64())
	require.Equal(t, l.Seller, c.Seller)
}

func TestAssetKeyRoundTrip(t *testing.T) {
	collection := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	k := NewAssetKey(collection, big.NewInt(7))
	require.Equal(t, int64(7), k.TokenIDBig().Int64())
	require.Equal(t, k, NewAssetKey(collection, big.NewInt(7)))
	require.NotEqual(t, k, NewAssetKey(collection, big.NewInt(8)))
	require.Equal(t, collection.Hex()+"#7", k.String())
}

func TestAmounts(t *testing.T) {
	v, err := ParseAmount("150")
	require.NoError(t, err)
	require.Equal(t, int64(150), v.Int64())

	_, err = ParseAmount("-1")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseAmount("abc")
	require.Error(t, err)

	wei, err := ParseEther("1.5")
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000", wei.String())
	require.Equal(t, "1.5", FormatEther(wei))
	require.Equal(t, "0", FormatEther(nil))
}

func TestIsPrecondition(t *testing.T) {
	require.True(t, IsPrecondition(fmt.Errorf("wrapped: %w", ErrNotOwner)))
	require.False(t, IsPrecondition(ErrPayoutFailed))
	require.False(t, IsPrecondition(errors.New("boom")))
	require.False(t, IsPrecondition(fmt.Errorf("%w: %w", ErrTransferFailed, ErrNotOwner)))
}

func TestValidTokenID(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	require.True(t, ValidTokenID(big.NewInt(0)))
	require.True(t, ValidTokenID(max))

	require.False(t, ValidTokenID(nil))
	require.False(t, ValidTokenID(big.NewInt(-7)))
	require.False(t, ValidTokenID(new(big.Int).Add(max, big.NewInt(8))))

	// 不合法的 id 会和合法 id 撞同一个主键
	require.Equal(t, NewAssetKey(common.Address{}, big.NewInt(7)), NewAssetKey(common.Address{}, big.NewInt(-7)))
}
