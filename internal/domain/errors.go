package domain

import "errors"

// 调用方可见的错误（用 errors.Is 判断）
var (
	ErrInvalidPrice  = errors.New("price must be above zero")
	ErrNotApproved   = errors.New("marketplace not approved for asset")
	ErrNotOwner      = errors.New("caller is not the asset owner")
	ErrAlreadyListed = errors.New("asset already listed")
	ErrNotListed     = errors.New("asset not listed")
	ErrPriceNotMet   = errors.New("payment below listing price")
	ErrNoProceeds    = errors.New("no proceeds to withdraw")
	ErrPayoutFailed  = errors.New("payout failed")

	// 以下为实现层面的补充错误
	ErrInvalidAmount  = errors.New("amount must not be negative")
	ErrTransferFailed = errors.New("asset transfer failed")
	ErrReentrantCall  = errors.New("reentrant call rejected")
	ErrInvalidTokenID = errors.New("token id must be a uint256")

	// 链上付款核验
	ErrDepositRequired    = errors.New("payment deposit required")
	ErrDepositUnsupported = errors.New("payment deposits not enabled")
	ErrDepositInvalid     = errors.New("payment deposit invalid")
	ErrDepositUsed        = errors.New("payment deposit already used")
)

// IsPrecondition 是否为前置条件类错误（未发生任何状态变更）
func IsPrecondition(err error) bool {
	if errors.Is(err, ErrPayoutFailed) || errors.Is(err, ErrTransferFailed) {
		return false
	}
	for _, target := range []error{
		ErrInvalidPrice, ErrNotApproved, ErrNotOwner, ErrAlreadyListed,
		ErrNotListed, ErrPriceNotMet, ErrNoProceeds, ErrInvalidAmount,
		ErrInvalidTokenID, ErrDepositRequired, ErrDepositUnsupported,
		ErrDepositInvalid, ErrDepositUsed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
