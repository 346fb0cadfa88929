// Package client 市场 HTTP API 的 Go 客户端（resty）。
// 返回的错误可以直接用 errors.Is 与 domain 包里的哨兵错误比较。
package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/pkg/marketapi"
	"github.com/amzilayoub/nft-marketplace/pkg/ratelimit"
)

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market api %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap 让 errors.Is(err, domain.ErrNotListed) 之类的判断成立
func (e *APIError) Unwrap() error {
	return marketapi.ErrorForCode(e.Code)
}

type Client struct {
	http   *resty.Client
	caller common.Address
}

type Option func(*resty.Client)

// WithTimeout 单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetry 遇到 429 时最多重试 n 次，等待时间取 Retry-After
func WithRetry(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// WithRateLimit 客户端侧限速：每次请求前从令牌桶取令牌，取不到就等待（受请求 ctx 控制）
func WithRateLimit(capacity int, refillPerSec float64) Option {
	bucket := ratelimit.NewTokenBucket(capacity, refillPerSec)
	return func(c *resty.Client) {
		c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return bucket.Wait(r.Context())
		})
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "nft-marketplace-sdk").
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(resp *resty.Response, _ error) bool {
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		}).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if v := resp.Header().Get("Retry-After"); v != "" {
					if seconds, err := strconv.Atoi(v); err == nil {
						return time.Duration(seconds) * time.Second, nil
					}
				}
			}
			return 0, nil
		})
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// As 返回以 caller 身份发请求的客户端（共享连接池）
func (c *Client) As(caller common.Address) *Client {
	return &Client{http: c.http, caller: caller}
}

// Caller 当前身份
func (c *Client) Caller() common.Address { return c.caller }

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.http.R().SetError(&marketapi.ErrorResponse{})
	if ctx != nil {
		r.SetContext(ctx)
	}
	if c.caller != (common.Address{}) {
		r.SetHeader(marketapi.HeaderCaller, c.caller.Hex())
	}
	return r
}

func (c *Client) do(r *resty.Request, method, path string) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Message: strings.TrimSpace(string(resp.Body()))}
		if body, ok := resp.Error().(*marketapi.ErrorResponse); ok && body.Code != "" {
			apiErr.Code = body.Code
			apiErr.Message = body.Error
		}
		return apiErr
	}
	return nil
}

func listingPath(collection common.Address, tokenID *big.Int) string {
	return fmt.Sprintf("/api/listings/%s/%s", collection.Hex(), tokenID.String())
}

func (c *Client) GetListing(ctx context.Context, collection common.Address, tokenID *big.Int) (*marketapi.ListingResponse, error) {
	var out marketapi.ListingResponse
	if err := c.do(c.newRequest(ctx).SetResult(&out), http.MethodGet, listingPath(collection, tokenID)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context, collection common.Address, tokenID, price *big.Int) (*marketapi.ListingResponse, error) {
	var out marketapi.ListingResponse
	req := c.newRequest(ctx).SetResult(&out).SetBody(marketapi.ListRequest{
		Collection: collection.Hex(),
		TokenID:    tokenID.String(),
		Price:      price.String(),
	})
	if err := c.do(req, http.MethodPost, "/api/listings"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reprice(ctx context.Context, collection common.Address, tokenID, price *big.Int) (*marketapi.ListingResponse, error) {
	var out marketapi.ListingResponse
	req := c.newRequest(ctx).SetResult(&out).SetBody(marketapi.RepriceRequest{Price: price.String()})
	if err := c.do(req, http.MethodPut, listingPath(collection, tokenID)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, collection common.Address, tokenID *big.Int) error {
	return c.do(c.newRequest(ctx), http.MethodDelete, listingPath(collection, tokenID))
}

func (c *Client) Buy(ctx context.Context, collection common.Address, tokenID, payment *big.Int) error {
	req := c.newRequest(ctx).SetBody(marketapi.BuyRequest{Payment: payment.String()})
	return c.do(req, http.MethodPost, listingPath(collection, tokenID)+"/buy")
}

// BuyWithDeposit 用链上付款交易购买，返回按链上金额记账的付款额
func (c *Client) BuyWithDeposit(ctx context.Context, collection common.Address, tokenID *big.Int, paymentTx common.Hash) (*big.Int, error) {
	var out marketapi.BuyResponse
	req := c.newRequest(ctx).SetBody(marketapi.BuyRequest{PaymentTx: paymentTx.Hex()}).SetResult(&out)
	if err := c.do(req, http.MethodPost, listingPath(collection, tokenID)+"/buy"); err != nil {
		return nil, err
	}
	return domain.ParseAmount(out.Payment)
}

// Proceeds 查询当前身份的可提余额
func (c *Client) Proceeds(ctx context.Context) (*big.Int, error) {
	var out marketapi.ProceedsResponse
	if err := c.do(c.newRequest(ctx).SetResult(&out), http.MethodGet, "/api/proceeds"); err != nil {
		return nil, err
	}
	return domain.ParseAmount(out.Amount)
}

// Withdraw 提取全部收益，返回到账金额
func (c *Client) Withdraw(ctx context.Context) (*big.Int, error) {
	var out marketapi.ProceedsResponse
	if err := c.do(c.newRequest(ctx).SetResult(&out), http.MethodPost, "/api/proceeds/withdraw"); err != nil {
		return nil, err
	}
	return domain.ParseAmount(out.Amount)
}

// EventsQuery 事件查询条件
type EventsQuery struct {
	Kind       string
	Collection string
	TokenID    string
	Party      string
	Limit      int
}

func (c *Client) Events(ctx context.Context, q EventsQuery) ([]marketapi.EventRecord, error) {
	var out marketapi.EventsResponse
	req := c.newRequest(ctx).SetResult(&out)
	for k, v := range map[string]string{
		"kind":       q.Kind,
		"collection": q.Collection,
		"token_id":   q.TokenID,
		"party":      q.Party,
	} {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(q.Limit))
	}
	if err := c.do(req, http.MethodGet, "/api/events"); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// Mint 开发接口：铸造给当前身份
func (c *Client) Mint(ctx context.Context, collection common.Address, tokenID *big.Int) error {
	req := c.newRequest(ctx).SetBody(marketapi.MintRequest{Collection: collection.Hex(), TokenID: tokenID.String()})
	return c.do(req, http.MethodPost, "/api/dev/mint")
}

// Approve 开发接口：授权 spender；spender 为零地址时授权给市场
func (c *Client) Approve(ctx context.Context, collection common.Address, tokenID *big.Int, spender common.Address) error {
	body := marketapi.ApproveRequest{Collection: collection.Hex(), TokenID: tokenID.String()}
	if spender != (common.Address{}) {
		body.Spender = spender.Hex()
	}
	return c.do(c.newRequest(ctx).SetBody(body), http.MethodPost, "/api/dev/approve")
}
