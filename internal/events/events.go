package events

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kind 事件类型
type Kind string

const (
	KindItemListed        Kind = "ItemListed"
	KindItemBought        Kind = "ItemBought"
	KindItemCanceled      Kind = "ItemCanceled"
	KindItemUpdated       Kind = "ItemUpdated"
	KindProceedsWithdrawn Kind = "ProceedsWithdrawn"
)

// Event 市场对外发出的通知记录
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
}

// ItemListed 挂单事件
type ItemListed struct {
	Seller     common.Address `json:"seller"`
	Collection common.Address `json:"collection"`
	TokenID    *big.Int       `json:"token_id"`
	Price      *big.Int       `json:"price"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ItemBought 成交事件，Price 为买家实际支付金额
type ItemBought struct {
	Buyer      common.Address `json:"buyer"`
	Collection common.Address `json:"collection"`
	TokenID    *big.Int       `json:"token_id"`
	Price      *big.Int       `json:"price"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ItemCanceled 撤单事件
type ItemCanceled struct {
	Owner      common.Address `json:"owner"`
	Collection common.Address `json:"collection"`
	TokenID    *big.Int       `json:"token_id"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ItemUpdated 改价事件
type ItemUpdated struct {
	Owner      common.Address `json:"owner"`
	Collection common.Address `json:"collection"`
	TokenID    *big.Int       `json:"token_id"`
	Price      *big.Int       `json:"price"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ProceedsWithdrawn 提现事件
type ProceedsWithdrawn struct {
	Seller    common.Address `json:"seller"`
	Amount    *big.Int       `json:"amount"`
	Timestamp time.Time      `json:"timestamp"`
}

func (ItemListed) Kind() Kind        { return KindItemListed }
func (ItemBought) Kind() Kind        { return KindItemBought }
func (ItemCanceled) Kind() Kind      { return KindItemCanceled }
func (ItemUpdated) Kind() Kind       { return KindItemUpdated }
func (ProceedsWithdrawn) Kind() Kind { return KindProceedsWithdrawn }

func (e ItemListed) OccurredAt() time.Time        { return e.Timestamp }
func (e ItemBought) OccurredAt() time.Time        { return e.Timestamp }
func (e ItemCanceled) OccurredAt() time.Time      { return e.Timestamp }
func (e ItemUpdated) OccurredAt() time.Time       { return e.Timestamp }
func (e ProceedsWithdrawn) OccurredAt() time.Time { return e.Timestamp }

// Subject 返回事件关联的资产；提现事件没有资产，ok 为 false
func Subject(e Event) (collection common.Address, tokenID *big.Int, ok bool) {
	switch ev := e.(type) {
	case *ItemListed:
		return ev.Collection, ev.TokenID, true
	case *ItemBought:
		return ev.Collection, ev.TokenID, true
	case *ItemCanceled:
		return ev.Collection, ev.TokenID, true
	case *ItemUpdated:
		return ev.Collection, ev.TokenID, true
	}
	return common.Address{}, nil, false
}

// Party 返回事件的主体方（卖家/买家/持有人）
func Party(e Event) common.Address {
	switch ev := e.(type) {
	case *ItemListed:
		return ev.Seller
	case *ItemBought:
		return ev.Buyer
	case *ItemCanceled:
		return ev.Owner
	case *ItemUpdated:
		return ev.Owner
	case *ProceedsWithdrawn:
		return ev.Seller
	}
	return common.Address{}
}
