package marketapi

import (
	"errors"
	"net/http"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

// 错误码
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInvalidPrice   = "INVALID_PRICE"
	CodeInvalidAmount  = "INVALID_AMOUNT"
	CodeNotApproved    = "NOT_APPROVED"
	CodeNotOwner       = "NOT_OWNER"
	CodeAlreadyListed  = "ALREADY_LISTED"
	CodeNotListed      = "NOT_LISTED"
	CodePriceNotMet    = "PRICE_NOT_MET"
	CodeNoProceeds     = "NO_PROCEEDS"
	CodePayoutFailed   = "PAYOUT_FAILED"
	CodeTransferFailed = "TRANSFER_FAILED"
	CodeReentrant      = "REENTRANT_CALL"
	CodeInvalidTokenID = "INVALID_TOKEN_ID"

	CodeDepositRequired    = "DEPOSIT_REQUIRED"
	CodeDepositUnsupported = "DEPOSIT_UNSUPPORTED"
	CodeDepositInvalid     = "DEPOSIT_INVALID"
	CodeDepositUsed        = "DEPOSIT_USED"

	CodeRateLimited    = "RATE_LIMITED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL"
)

var codes = []struct {
	err    error
	code   string
	status int
}{
	// 外部调用失败排在前面，原因链里即使带着其他市场错误也按失败本身归类
	{domain.ErrPayoutFailed, CodePayoutFailed, http.StatusBadGateway},
	{domain.ErrTransferFailed, CodeTransferFailed, http.StatusBadGateway},
	{domain.ErrInvalidPrice, CodeInvalidPrice, http.StatusBadRequest},
	{domain.ErrInvalidAmount, CodeInvalidAmount, http.StatusBadRequest},
	{domain.ErrNotApproved, CodeNotApproved, http.StatusForbidden},
	{domain.ErrNotOwner, CodeNotOwner, http.StatusForbidden},
	{domain.ErrAlreadyListed, CodeAlreadyListed, http.StatusConflict},
	{domain.ErrNotListed, CodeNotListed, http.StatusNotFound},
	{domain.ErrPriceNotMet, CodePriceNotMet, http.StatusPaymentRequired},
	{domain.ErrNoProceeds, CodeNoProceeds, http.StatusNotFound},
	{domain.ErrReentrantCall, CodeReentrant, http.StatusConflict},
	{domain.ErrInvalidTokenID, CodeInvalidTokenID, http.StatusBadRequest},
	{domain.ErrDepositRequired, CodeDepositRequired, http.StatusPaymentRequired},
	{domain.ErrDepositUnsupported, CodeDepositUnsupported, http.StatusBadRequest},
	{domain.ErrDepositInvalid, CodeDepositInvalid, http.StatusPaymentRequired},
	{domain.ErrDepositUsed, CodeDepositUsed, http.StatusConflict},
}

// CodeFor 把市场错误映射成 HTTP 状态码和错误码；未知错误为 500
func CodeFor(err error) (status int, code string) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorForCode 错误码还原为市场错误，未知错误码返回 nil
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
