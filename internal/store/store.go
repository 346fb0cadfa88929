// Package store 定义挂单表、收益表和已用付款表的存储接口。
//
// 两个表相互独立、各自加锁；市场逻辑层以引用方式持有它们，
// 不依赖任何包级全局状态。
package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

// ListingStore 挂单表：AssetKey -> Listing
// Get 对不存在的 key 返回零值哨兵挂单，不返回错误
type ListingStore interface {
	Get(key domain.AssetKey) (domain.Listing, error)
	Put(key domain.AssetKey, listing domain.Listing) error
	Delete(key domain.AssetKey) error
}

// ProceedsStore 收益表：地址 -> 累计可提余额
type ProceedsStore interface {
	Balance(party common.Address) (*big.Int, error)
	// Credit 累加余额
	Credit(party common.Address, amount *big.Int) error
	// Debit 扣减余额（仅用于回滚一次 Credit），余额不足时返回错误
	Debit(party common.Address, amount *big.Int) error
	// Reset 清零
	Reset(party common.Address) error
}

// DepositStore 已使用的链上付款交易，保证同一笔付款只能买一次
type DepositStore interface {
	// Claim 标记为已使用；已存在时返回 domain.ErrDepositUsed
	Claim(ref common.Hash) error
	// Release 撤销标记（购买失败时归还），不存在时不报错
	Release(ref common.Hash) error
}
