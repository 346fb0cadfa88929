package marketplace

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

// Withdraw 提取调用方全部收益。
//
// 先打款、打款成功后才清零；打款失败返回 ErrPayoutFailed，余额保持不变可重试。
// PaymentChannel 只能在确定没有付出任何金额时报告失败（链上实现：未广播或 revert）。
// 防止重入靠的是 Guard，而不是写入顺序。
func (m *Marketplace) Withdraw(ctx context.Context, caller common.Address) (*big.Int, error) {
	entry := logger.WithField("op", "withdraw").WithField("caller", caller.Hex())

	ctx, release, err := m.guard.Enter(ctx)
	if err != nil {
		return nil, fail(entry, err)
	}
	defer release()

	balance, err := m.proceeds.Balance(caller)
	if err != nil {
		return nil, fail(entry, errors.Wrap(err, "read proceeds"))
	}
	if err := requireProceeds(balance); err != nil {
		return nil, fail(entry, err)
	}
	entry = entry.WithField("amount", balance.String())

	if err := m.payments.PayTo(ctx, caller, new(big.Int).Set(balance)); err != nil {
		return nil, fail(entry, fmt.Errorf("%w: %w", domain.ErrPayoutFailed, err))
	}
	if err := m.proceeds.Reset(caller); err != nil {
		// 已经打款但清零失败，必须人工介入
		entry.WithError(err).Error("proceeds paid but not reset")
		return nil, errors.Wrap(err, "reset proceeds")
	}

	entry.Info("proceeds withdrawn")
	m.sink.Publish(ctx, &events.ProceedsWithdrawn{
		Seller:    caller,
		Amount:    new(big.Int).Set(balance),
		Timestamp: m.now(),
	})
	return balance, nil
}
