package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

// Backend 链上调用所需的最小接口，*ethclient.Client 满足
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Dial 连接 RPC 节点
func Dial(rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接RPC节点失败: %w", err)
	}
	return client, nil
}

// 交易结果。广播之后只有 ErrReverted 代表"确定没有执行"
var (
	ErrReverted       = errors.New("transaction reverted")
	ErrReceiptPending = errors.New("transaction receipt pending")
)

// DefaultReceiptTimeout 广播后等待回执的上限
const DefaultReceiptTimeout = 2 * time.Minute

// Sender 用市场热钱包签名并发送交易，等待上链
type Sender struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	// ReceiptTimeout 等待回执的上限，与调用方 ctx 的取消无关
	ReceiptTimeout time.Duration

	// 同一个账户的交易串行发送，避免 nonce 冲突
	mu sync.Mutex
}

func NewSender(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int) *Sender {
	return &Sender{
		backend:        backend,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        new(big.Int).Set(chainID),
		ReceiptTimeout: DefaultReceiptTimeout,
	}
}

// From 发送方地址（即市场地址）
func (s *Sender) From() common.Address { return s.from }

// Send 签名并广播交易，广播成功即返回。
// 返回错误时交易一定没有被节点接受；返回交易后结果已不可撤回，用 Confirm 等待回执。
func (s *Sender) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*ethtypes.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		value = new(big.Int)
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("获取nonce失败: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取gas价格失败: %w", err)
	}
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("估算gas失败: %w", err)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("签名交易失败: %w", err)
	}

	// 广播不跟随调用方取消：请求断开不能让一笔已发出的交易变成"失败"
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.backend.SendTransaction(sendCtx, signed); err != nil {
		return nil, fmt.Errorf("发送交易失败: %w", err)
	}
	logger.Debugf("[chain] tx sent: hash=%s to=%s nonce=%d", signed.Hash().Hex(), to.Hex(), nonce)
	return signed, nil
}

// Confirm 等待交易回执，最多 ReceiptTimeout。
// 回执显示 revert 时返回 ErrReverted；超时返回 ErrReceiptPending，此时交易仍可能上链。
func (s *Sender) Confirm(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Receipt, error) {
	timeout := s.ReceiptTimeout
	if timeout <= 0 {
		timeout = DefaultReceiptTimeout
	}
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: hash=%s: %w", ErrReceiptPending, tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: hash=%s", ErrReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// settle 广播后的统一处理：只有 revert 算失败，回执未到按已提交处理并记录哈希
func (s *Sender) settle(ctx context.Context, tx *ethtypes.Transaction, what string) error {
	receipt, err := s.Confirm(ctx, tx)
	switch {
	case err == nil:
		logger.Infof("[chain] %s confirmed: tx=%s block=%s", what, receipt.TxHash.Hex(), receipt.BlockNumber)
		return nil
	case errors.Is(err, ErrReverted):
		return err
	default:
		logger.WithError(err).WithField("tx", tx.Hash().Hex()).Warnf("[chain] %s broadcast, receipt not seen yet", what)
		return nil
	}
}
