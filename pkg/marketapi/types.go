// Package marketapi 定义 HTTP API 的请求/响应结构和错误码，服务端与 SDK 共用。
// 金额一律用十进制字符串（wei），避免 JSON number 丢精度。
package marketapi

import (
	"encoding/json"
	"time"
)

// HeaderCaller 调用方地址请求头
const HeaderCaller = "X-Caller-Address"

// HeaderRateLimitRemaining 本次请求之后调用方桶里剩余的令牌数
const HeaderRateLimitRemaining = "X-RateLimit-Remaining"

// ListingResponse 挂单查询结果；listed=false 时 price 为 "0"、seller 为零地址
type ListingResponse struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Listed     bool   `json:"listed"`
	Price      string `json:"price"`
	PriceETH   string `json:"price_eth"`
	Seller     string `json:"seller"`
}

type ListRequest struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Price      string `json:"price"`
}

type RepriceRequest struct {
	Price string `json:"price"`
}

// BuyRequest payment 为买家随请求附带的金额（wei），可高于挂单价。
// 开启链上打款时改填 payment_tx：买家转给市场热钱包的交易哈希，金额以链上为准
type BuyRequest struct {
	Payment   string `json:"payment,omitempty"`
	PaymentTx string `json:"payment_tx,omitempty"`
}

// BuyResponse 成交结果
type BuyResponse struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Buyer      string `json:"buyer"`
	Payment    string `json:"payment"`
	PaymentTx  string `json:"payment_tx,omitempty"`
}

// ProceedsResponse 收益查询 / 提现结果
type ProceedsResponse struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	AmountETH string `json:"amount_eth"`
}

// EventRecord 事件日志中的一条记录
type EventRecord struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Collection string          `json:"collection,omitempty"`
	TokenID    string          `json:"token_id,omitempty"`
	Party      string          `json:"party"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

type EventsResponse struct {
	Events []EventRecord `json:"events"`
}

// MintRequest 开发接口：在内存 oracle 上铸造 token
type MintRequest struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Owner      string `json:"owner"`
}

// ApproveRequest 开发接口：持有人授权 spender；spender 为空表示授权给市场
type ApproveRequest struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Spender    string `json:"spender,omitempty"`
}

// ErrorResponse 统一错误体
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
