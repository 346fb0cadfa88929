package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKey 挂单的复合主键：(合约地址, tokenId)
// TokenID 以 32 字节定长保存，保证可以直接作为 map key 使用
type AssetKey struct {
	Collection common.Address
	TokenID    common.Hash
}

// maxTokenIDBits ERC-721 tokenId 为 uint256
const maxTokenIDBits = 256

// ValidTokenID tokenId 非空、非负且不超过 256 位；
// 不合法的值会被 NewAssetKey 截断成另一个 tokenId，调用前必须检查
func ValidTokenID(tokenID *big.Int) bool {
	return tokenID != nil && tokenID.Sign() >= 0 && tokenID.BitLen() <= maxTokenIDBits
}

// NewAssetKey 由合约地址和 tokenId 构造主键
func NewAssetKey(collection common.Address, tokenID *big.Int) AssetKey {
	if tokenID == nil {
		tokenID = new(big.Int)
	}
	return AssetKey{Collection: collection, TokenID: common.BigToHash(tokenID)}
}

// TokenIDBig 返回 tokenId 的 big.Int 形式
func (k AssetKey) TokenIDBig() *big.Int {
	return k.TokenID.Big()
}

func (k AssetKey) String() string {
	return fmt.Sprintf("%s#%s", k.Collection.Hex(), k.TokenID.Big().String())
}

// Listing 挂单记录
// Price 为 0 表示"未挂单"，没有单独的存在标记
type Listing struct {
	Price  *big.Int       // 价格（最小货币单位，wei）
	Seller common.Address // 卖家
}

// EmptyListing 返回零值哨兵挂单
func EmptyListing() Listing {
	return Listing{Price: new(big.Int)}
}

// IsListed 价格大于 0 才算在售
func (l Listing) IsListed() bool {
	return l.Price != nil && l.Price.Sign() > 0
}

// Clone 深拷贝，避免调用方修改内部的 big.Int
func (l Listing) Clone() Listing {
	out := Listing{Seller: l.Seller, Price: new(big.Int)}
	if l.Price != nil {
		out.Price.Set(l.Price)
	}
	return out
}
