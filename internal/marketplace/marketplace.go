// Package marketplace 实现挂单表和收益账本上的状态机：
// list / buy / cancel / reprice / withdraw 以及只读查询。
package marketplace

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/internal/ports"
	"github.com/amzilayoub/nft-marketplace/internal/store"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

// Config 市场依赖
type Config struct {
	Address  common.Address // 市场自身地址，用于比对授权
	Listings store.ListingStore
	Proceeds store.ProceedsStore
	Oracle   ports.OwnershipOracle
	Payments ports.PaymentChannel
	Deposits ports.DepositVerifier // 可选；设置后 Buy 只接受链上已核验的付款
	Events   ports.EventSink       // 可选
	Now      func() time.Time      // 可选，测试用
}

// Marketplace 挂单 + 收益账本
type Marketplace struct {
	address  common.Address
	listings store.ListingStore
	proceeds store.ProceedsStore
	oracle   ports.OwnershipOracle
	payments ports.PaymentChannel
	deposits ports.DepositVerifier
	sink     ports.EventSink
	now      func() time.Time

	guard Guard
	keys  *keyLocks
}

type nopSink struct{}

func (nopSink) Publish(context.Context, events.Event) {}

// New 创建市场实例
func New(cfg Config) (*Marketplace, error) {
	if cfg.Listings == nil || cfg.Proceeds == nil {
		return nil, errors.New("marketplace: listing and proceeds stores are required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("marketplace: ownership oracle is required")
	}
	if cfg.Payments == nil {
		return nil, errors.New("marketplace: payment channel is required")
	}
	if cfg.Address == (common.Address{}) {
		return nil, errors.New("marketplace: address is required")
	}
	m := &Marketplace{
		address:  cfg.Address,
		listings: cfg.Listings,
		proceeds: cfg.Proceeds,
		oracle:   cfg.Oracle,
		payments: cfg.Payments,
		deposits: cfg.Deposits,
		sink:     cfg.Events,
		now:      cfg.Now,
		keys:     newKeyLocks(),
	}
	if m.sink == nil {
		m.sink = nopSink{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Address 市场地址
func (m *Marketplace) Address() common.Address { return m.address }

// RequiresDeposit Buy 是否必须附带链上付款凭证
func (m *Marketplace) RequiresDeposit() bool { return m.deposits != nil }

// GetListing 读取挂单；未挂单或 tokenId 不合法时返回价格为 0 的哨兵记录
func (m *Marketplace) GetListing(_ context.Context, collection common.Address, tokenID *big.Int) (domain.Listing, error) {
	if !domain.ValidTokenID(tokenID) {
		return domain.EmptyListing(), nil
	}
	l, err := m.listings.Get(domain.NewAssetKey(collection, tokenID))
	if err != nil {
		return domain.EmptyListing(), errors.Wrap(err, "read listing")
	}
	return l, nil
}

// GetProceeds 读取调用方自己的可提余额
func (m *Marketplace) GetProceeds(_ context.Context, caller common.Address) (*big.Int, error) {
	bal, err := m.proceeds.Balance(caller)
	if err != nil {
		return nil, errors.Wrap(err, "read proceeds")
	}
	return bal, nil
}

// rejectReentry 外部回调期间的任何写操作都直接拒绝
func (m *Marketplace) rejectReentry(ctx context.Context) error {
	if m.guard.Held(ctx) {
		return domain.ErrReentrantCall
	}
	return nil
}

func (m *Marketplace) ownerOf(ctx context.Context, key domain.AssetKey) (common.Address, error) {
	owner, err := m.oracle.OwnerOf(ctx, key.Collection, key.TokenIDBig())
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "owner of %s", key)
	}
	return owner, nil
}

func (m *Marketplace) log(op string, key domain.AssetKey, caller common.Address) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"op":         op,
		"collection": key.Collection.Hex(),
		"token_id":   key.TokenIDBig().String(),
		"caller":     caller.Hex(),
	})
}

// fail 记录前置条件失败（debug）或其他错误（warn），原样返回 err
func fail(entry *logrus.Entry, err error) error {
	if domain.IsPrecondition(err) {
		entry.WithError(err).Debug("rejected")
	} else {
		entry.WithError(err).Warn("failed")
	}
	return err
}
