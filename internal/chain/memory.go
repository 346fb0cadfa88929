package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

// ErrUnknownToken 查询不存在的 token（对应 ERC-721 ownerOf 的 revert）
var ErrUnknownToken = errors.New("unknown token")

// Registry 内存版 ERC-721 账本：owners / approved 两张表。
// 用于本地开发和测试，行为对齐 ERC-721 的 transferFrom 规则。
type Registry struct {
	mu       sync.RWMutex
	operator common.Address // 市场地址，只有它可以调用 Transfer
	owners   map[domain.AssetKey]common.Address
	approved map[domain.AssetKey]common.Address

	// OnTransfer 在转移生效前调用，返回错误则转移中止（测试注入故障/重入用）
	OnTransfer func(ctx context.Context, from, to, collection common.Address, tokenID *big.Int) error
}

// NewRegistry 创建内存账本，operator 为市场地址
func NewRegistry(operator common.Address) *Registry {
	return &Registry{
		operator: operator,
		owners:   make(map[domain.AssetKey]common.Address),
		approved: make(map[domain.AssetKey]common.Address),
	}
}

// Mint 铸造 token 给 to
func (r *Registry) Mint(collection common.Address, tokenID *big.Int, to common.Address) error {
	key := domain.NewAssetKey(collection, tokenID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[key]; ok {
		return fmt.Errorf("token %s already minted", key)
	}
	r.owners[key] = to
	return nil
}

// Approve owner 授权 spender 转移该 token；spender 为零地址表示取消授权
func (r *Registry) Approve(owner, spender, collection common.Address, tokenID *big.Int) error {
	key := domain.NewAssetKey(collection, tokenID)
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.owners[key]
	if !ok {
		return ErrUnknownToken
	}
	if cur != owner {
		return fmt.Errorf("approve %s: caller %s is not owner", key, owner.Hex())
	}
	r.approved[key] = spender
	return nil
}

// TransferByOwner 持有人自行转移（不经过市场），会清除授权
func (r *Registry) TransferByOwner(from, to, collection common.Address, tokenID *big.Int) error {
	key := domain.NewAssetKey(collection, tokenID)
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.owners[key]
	if !ok {
		return ErrUnknownToken
	}
	if cur != from {
		return fmt.Errorf("transfer %s: %s is not owner", key, from.Hex())
	}
	r.owners[key] = to
	delete(r.approved, key)
	return nil
}

func (r *Registry) OwnerOf(_ context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[domain.NewAssetKey(collection, tokenID)]
	if !ok {
		return common.Address{}, ErrUnknownToken
	}
	return owner, nil
}

func (r *Registry) GetApproved(_ context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	key := domain.NewAssetKey(collection, tokenID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.owners[key]; !ok {
		return common.Address{}, ErrUnknownToken
	}
	return r.approved[key], nil
}

// Transfer 市场以被授权方身份转移资产；要么完整生效，要么不变
func (r *Registry) Transfer(ctx context.Context, from, to, collection common.Address, tokenID *big.Int) error {
	if hook := r.OnTransfer; hook != nil {
		if err := hook(ctx, from, to, collection, tokenID); err != nil {
			return err
		}
	}
	key := domain.NewAssetKey(collection, tokenID)
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.owners[key]
	if !ok {
		return ErrUnknownToken
	}
	if cur != from {
		return fmt.Errorf("transfer %s: from %s is not owner", key, from.Hex())
	}
	if r.approved[key] != r.operator {
		return fmt.Errorf("transfer %s: operator not approved", key)
	}
	r.owners[key] = to
	delete(r.approved, key)
	return nil
}

// Bank 内存版打款通道，记录每个地址累计收到的金额
type Bank struct {
	mu       sync.Mutex
	received map[common.Address]*big.Int
	payouts  int

	// OnPay 在记账前调用，返回错误表示打款失败
	OnPay func(ctx context.Context, to common.Address, amount *big.Int) error
}

func NewBank() *Bank {
	return &Bank{received: make(map[common.Address]*big.Int)}
}

func (b *Bank) PayTo(ctx context.Context, to common.Address, amount *big.Int) error {
	if hook := b.OnPay; hook != nil {
		if err := hook(ctx, to, amount); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.received[to]
	if !ok {
		cur = new(big.Int)
		b.received[to] = cur
	}
	cur.Add(cur, amount)
	b.payouts++
	return nil
}

// Received 累计收到的金额
func (b *Bank) Received(party common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.received[party]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Payouts 成功打款次数
func (b *Bank) Payouts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.payouts
}
