package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/store"
)

// DepositBackend 核验付款交易所需的节点接口，*ethclient.Client 满足
type DepositBackend interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

var _ DepositBackend = (*ethclient.Client)(nil)

// DepositVerifier 买家先把货款转到市场热钱包，购买时提交交易哈希，这里核验后入账
type DepositVerifier struct {
	backend   DepositBackend
	recipient common.Address
	signer    ethtypes.Signer
	used      store.DepositStore
}

func NewDepositVerifier(backend DepositBackend, recipient common.Address, chainID *big.Int, used store.DepositStore) *DepositVerifier {
	return &DepositVerifier{
		backend:   backend,
		recipient: recipient,
		signer:    ethtypes.LatestSignerForChainID(chainID),
		used:      used,
	}
}

func invalid(ref common.Hash, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrDepositInvalid, ref.Hex(), fmt.Sprintf(format, args...))
}

// Claim 交易必须已成功上链、由 payer 签名、收款方为市场、金额大于 0；通过后标记为已使用
func (v *DepositVerifier) Claim(ctx context.Context, ref common.Hash, payer common.Address) (*big.Int, error) {
	tx, pending, err := v.backend.TransactionByHash(ctx, ref)
	if errors.Is(err, ethereum.NotFound) {
		return nil, invalid(ref, "transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("查询付款交易失败: %w", err)
	}
	if pending {
		return nil, invalid(ref, "transaction not mined yet")
	}
	if tx.To() == nil || *tx.To() != v.recipient {
		return nil, invalid(ref, "recipient is not the marketplace")
	}
	if tx.Value().Sign() <= 0 {
		return nil, invalid(ref, "no value transferred")
	}
	from, err := ethtypes.Sender(v.signer, tx)
	if err != nil {
		return nil, invalid(ref, "recover sender: %v", err)
	}
	if from != payer {
		return nil, invalid(ref, "paid by %s, not %s", from.Hex(), payer.Hex())
	}

	receipt, err := v.backend.TransactionReceipt(ctx, ref)
	if errors.Is(err, ethereum.NotFound) {
		return nil, invalid(ref, "receipt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("查询付款回执失败: %w", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, invalid(ref, "transaction reverted")
	}

	if err := v.used.Claim(ref); err != nil {
		return nil, err
	}
	return new(big.Int).Set(tx.Value()), nil
}

func (v *DepositVerifier) Release(_ context.Context, ref common.Hash) error {
	return v.used.Release(ref)
}
