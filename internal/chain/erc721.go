package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC721ABI 只包含市场用到的三个方法
const ERC721ABI = `[
  {"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getApproved","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"safeTransferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// ERC721Oracle 通过链上 ERC-721 合约查询所有权/授权并执行转移
type ERC721Oracle struct {
	backend Backend
	sender  *Sender
	abi     abi.ABI
}

func NewERC721Oracle(backend Backend, sender *Sender) (*ERC721Oracle, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC721ABI))
	if err != nil {
		return nil, fmt.Errorf("解析ERC721 ABI失败: %w", err)
	}
	return &ERC721Oracle{backend: backend, sender: sender, abi: parsed}, nil
}

func (o *ERC721Oracle) callAddress(ctx context.Context, collection common.Address, method string, tokenID *big.Int) (common.Address, error) {
	data, err := o.abi.Pack(method, tokenID)
	if err != nil {
		return common.Address{}, fmt.Errorf("打包%s参数失败: %w", method, err)
	}
	result, err := o.backend.CallContract(ctx, ethereum.CallMsg{To: &collection, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("调用%s失败: %w", method, err)
	}
	var out common.Address
	if err := o.abi.UnpackIntoInterface(&out, method, result); err != nil {
		return common.Address{}, fmt.Errorf("解析%s结果失败: %w", method, err)
	}
	return out, nil
}

func (o *ERC721Oracle) OwnerOf(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	return o.callAddress(ctx, collection, "ownerOf", tokenID)
}

func (o *ERC721Oracle) GetApproved(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	return o.callAddress(ctx, collection, "getApproved", tokenID)
}

// Transfer 市场作为被授权方调用 safeTransferFrom。
// 未广播或回执 revert 时返回错误，所有权不变；广播后回执未到按已转移处理。
func (o *ERC721Oracle) Transfer(ctx context.Context, from, to, collection common.Address, tokenID *big.Int) error {
	data, err := o.abi.Pack("safeTransferFrom", from, to, tokenID)
	if err != nil {
		return fmt.Errorf("打包safeTransferFrom参数失败: %w", err)
	}
	tx, err := o.sender.Send(ctx, collection, nil, data)
	if err == nil {
		err = o.sender.settle(ctx, tx, "transfer")
	}
	if err != nil {
		return fmt.Errorf("safeTransferFrom %s#%s: %w", collection.Hex(), tokenID, err)
	}
	return nil
}
