package memstore

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

// Listings 内存挂单表
type Listings struct {
	mu    sync.RWMutex
	items map[domain.AssetKey]domain.Listing
}

// NewListings 创建内存挂单表
func NewListings() *Listings {
	return &Listings{items: make(map[domain.AssetKey]domain.Listing)}
}

func (s *Listings) Get(key domain.AssetKey) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[key]
	if !ok {
		return domain.EmptyListing(), nil
	}
	return l.Clone(), nil
}

func (s *Listings) Put(key domain.AssetKey, listing domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = listing.Clone()
	return nil
}

func (s *Listings) Delete(key domain.AssetKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len 当前记录数（含价格为 0 的记录）
func (s *Listings) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Proceeds 内存收益表
type Proceeds struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

// NewProceeds 创建内存收益表
func NewProceeds() *Proceeds {
	return &Proceeds{balances: make(map[common.Address]*big.Int)}
}

func (s *Proceeds) Balance(party common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.balances[party]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (s *Proceeds) Credit(party common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.balances[party]
	if !ok {
		cur = new(big.Int)
		s.balances[party] = cur
	}
	cur.Add(cur, amount)
	return nil
}

func (s *Proceeds) Debit(party common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.balances[party]
	if !ok || cur.Cmp(amount) < 0 {
		return fmt.Errorf("debit %s from %s: insufficient balance", amount, party.Hex())
	}
	cur.Sub(cur, amount)
	return nil
}

func (s *Proceeds) Reset(party common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.balances[party]; ok {
		cur.SetInt64(0)
	}
	return nil
}

// Deposits 内存已用付款表
type Deposits struct {
	mu   sync.Mutex
	used map[common.Hash]struct{}
}

func NewDeposits() *Deposits {
	return &Deposits{used: make(map[common.Hash]struct{})}
}

func (s *Deposits) Claim(ref common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.used[ref]; ok {
		return domain.ErrDepositUsed
	}
	s.used[ref] = struct{}{}
	return nil
}

func (s *Deposits) Release(ref common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.used, ref)
	return nil
}
