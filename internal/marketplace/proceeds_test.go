package marketplace

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/chain"
	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/internal/store/memstore"
)

func sell(t *testing.T, f *fixture, tokenID int64, price, payment int64) {
	t.Helper()
	ctx := context.Background()
	id := f.mintApproved(t, tokenID, seller)
	require.NoError(t, f.market.List(ctx, collection, id, big.NewInt(price), seller))
	require.NoError(t, f.market.Buy(ctx, collection, id, big.NewInt(payment), buyer))
}

func TestWithdrawNoProceeds(t *testing.T) {
	f := newFixture(t)
	_, err := f.market.Withdraw(context.Background(), seller)
	require.ErrorIs(t, err, domain.ErrNoProceeds)
	require.Zero(t, f.bank.Payouts())
	require.Empty(t, f.sink.all())
}

func TestWithdrawPaysWholeBalanceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell(t, f, 1, 100, 150)

	paid, err := f.market.Withdraw(ctx, seller)
	require.NoError(t, err)
	require.Equal(t, int64(150), paid.Int64())
	require.Equal(t, 1, f.bank.Payouts())

	_, err = f.market.Withdraw(ctx, seller)
	require.ErrorIs(t, err, domain.ErrNoProceeds)
	require.Equal(t, int64(150), f.bank.Received(seller).Int64())

	ev, ok := f.sink.last().(*events.ProceedsWithdrawn)
	require.True(t, ok)
	require.Equal(t, seller, ev.Seller)
	require.Equal(t, int64(150), ev.Amount.Int64())
}

func TestWithdrawOnlyOwnBalance(t *testing.T) {
	f := newFixture(t)
	sell(t, f, 1, 100, 100)

	_, err := f.market.Withdraw(context.Background(), stranger)
	require.ErrorIs(t, err, domain.ErrNoProceeds)
	require.Equal(t, int64(100), f.balance(t, seller))
}

func TestWithdrawPayoutFailureKeepsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sell(t, f, 1, 100, 120)

	f.bank.OnPay = func(context.Context, common.Address, *big.Int) error {
		return errors.New("recipient reverted")
	}
	_, err := f.market.Withdraw(ctx, seller)
	require.ErrorIs(t, err, domain.ErrPayoutFailed)
	require.Equal(t, int64(120), f.balance(t, seller))
	require.Zero(t, f.bank.Payouts())

	// 重试成功
	f.bank.OnPay = nil
	paid, err := f.market.Withdraw(ctx, seller)
	require.NoError(t, err)
	require.Equal(t, int64(120), paid.Int64())
	require.Equal(t, int64(0), f.balance(t, seller))
}

func TestWithdrawReturnsCopy(t *testing.T) {
	f := newFixture(t)
	sell(t, f, 1, 5, 5)
	paid, err := f.market.Withdraw(context.Background(), seller)
	require.NoError(t, err)
	paid.SetInt64(1_000_000)
	require.Equal(t, int64(5), f.bank.Received(seller).Int64())
	require.Equal(t, int64(0), f.balance(t, seller))
}

// lateChain 接受交易但迟迟不出回执
type lateChain struct {
	mu   sync.Mutex
	sent []*ethtypes.Transaction
}

func (b *lateChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("no contracts")
}

func (b *lateChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *lateChain) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (b *lateChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (b *lateChain) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *lateChain) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	return nil, ethereum.NotFound
}

func (b *lateChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *lateChain) broadcast() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := new(big.Int)
	for _, tx := range b.sent {
		total.Add(total, tx.Value())
	}
	return total
}

func TestWithdrawBroadcastWithoutReceiptIsPaid(t *testing.T) {
	backend := &lateChain{}
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := chain.NewSender(backend, key, big.NewInt(1337))
	sender.ReceiptTimeout = 20 * time.Millisecond

	proceeds := memstore.NewProceeds()
	require.NoError(t, proceeds.Credit(seller, big.NewInt(150)))
	m, err := New(Config{
		Address:  sender.From(),
		Listings: memstore.NewListings(),
		Proceeds: proceeds,
		Oracle:   chain.NewRegistry(sender.From()),
		Payments: chain.NewNativePayout(sender),
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		paid, err := m.Withdraw(ctx, seller)
		cancel()
		if i == 0 {
			require.NoError(t, err)
			require.Equal(t, int64(150), paid.Int64())
		} else {
			require.ErrorIs(t, err, domain.ErrNoProceeds)
		}
	}

	require.Equal(t, int64(150), backend.broadcast().Int64())
	bal, err := proceeds.Balance(seller)
	require.NoError(t, err)
	require.Equal(t, 0, bal.Sign())
}

func TestPayoutErrorKeepsCause(t *testing.T) {
	f := newFixture(t)
	sell(t, f, 1, 100, 100)

	declined := errors.New("card declined")
	f.bank.OnPay = func(context.Context, common.Address, *big.Int) error { return declined }
	_, err := f.market.Withdraw(context.Background(), seller)
	require.ErrorIs(t, err, domain.ErrPayoutFailed)
	require.ErrorIs(t, err, declined)
}
