package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/store/memstore"
)

var depositMarket = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// paid 让 key 给 to 转 value，并记到节点上
func paid(t *testing.T, b *fakeBackend, key *ecdsa.PrivateKey, nonce uint64, to common.Address, value int64) common.Hash {
	t.Helper()
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(value),
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(1337)), key)
	require.NoError(t, err)
	b.mu.Lock()
	b.txs[signed.Hash()] = signed
	b.mu.Unlock()
	return signed.Hash()
}

func newTestVerifier(t *testing.T) (*DepositVerifier, *fakeBackend, *ecdsa.PrivateKey, common.Address) {
	t.Helper()
	backend := newFakeBackend(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	v := NewDepositVerifier(backend, depositMarket, big.NewInt(1337), memstore.NewDeposits())
	return v, backend, key, crypto.PubkeyToAddress(key.PublicKey)
}

func TestDepositClaimOnce(t *testing.T) {
	v, backend, key, payer := newTestVerifier(t)
	ctx := context.Background()
	ref := paid(t, backend, key, 0, depositMarket, 150)

	amount, err := v.Claim(ctx, ref, payer)
	require.NoError(t, err)
	require.Equal(t, int64(150), amount.Int64())

	_, err = v.Claim(ctx, ref, payer)
	require.ErrorIs(t, err, domain.ErrDepositUsed)

	require.NoError(t, v.Release(ctx, ref))
	amount, err = v.Claim(ctx, ref, payer)
	require.NoError(t, err)
	require.Equal(t, int64(150), amount.Int64())
}

func TestDepositRejected(t *testing.T) {
	v, backend, key, payer := newTestVerifier(t)
	ctx := context.Background()

	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	elsewhere := paid(t, backend, key, 0, common.HexToAddress("0x5e"), 150)
	zero := paid(t, backend, key, 1, depositMarket, 0)
	notMine := paid(t, backend, other, 0, depositMarket, 150)
	unmined := paid(t, backend, key, 2, depositMarket, 150)
	reverted := paid(t, backend, key, 3, depositMarket, 150)
	backend.unmined[unmined] = true
	backend.reverted[reverted] = true

	cases := map[string]common.Hash{
		"wrong recipient": elsewhere,
		"zero value":      zero,
		"other payer":     notMine,
		"not mined":       unmined,
		"reverted":        reverted,
		"unknown":         common.HexToHash("0x1234"),
	}
	for name, ref := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Claim(ctx, ref, payer)
			require.ErrorIs(t, err, domain.ErrDepositInvalid)
		})
	}

	// 被拒绝的付款不占用
	backend.unmined[unmined] = false
	_, err = v.Claim(ctx, unmined, payer)
	require.NoError(t, err)
}
