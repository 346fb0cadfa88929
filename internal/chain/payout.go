package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

// NativePayout 从市场热钱包直接转原生币给收款人。
// 交易一经广播即视为已付款，只有回执 revert 才返回失败。
type NativePayout struct {
	sender *Sender
}

func NewNativePayout(sender *Sender) *NativePayout {
	return &NativePayout{sender: sender}
}

func (p *NativePayout) PayTo(ctx context.Context, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("payout amount must be positive")
	}
	tx, err := p.sender.Send(ctx, to, amount, nil)
	if err != nil {
		return err
	}
	logger.Infof("[chain] payout sent: to=%s amount=%s tx=%s", to.Hex(), amount, tx.Hash().Hex())
	return p.sender.settle(ctx, tx, "payout")
}
