package server

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/internal/metrics"
	"github.com/amzilayoub/nft-marketplace/pkg/marketapi"
)

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, marketapi.ErrorResponse{Error: msg, Code: code})
}

// writeMarketError 市场错误按错误码表映射状态码
func writeMarketError(c *gin.Context, err error) {
	status, code := marketapi.CodeFor(err)
	metrics.CountError(code)
	writeError(c, status, code, err.Error())
}

func badRequest(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidAmount) {
		writeMarketError(c, err)
		return
	}
	writeError(c, http.StatusBadRequest, marketapi.CodeBadRequest, err.Error())
}

func parseTxHash(raw string) (common.Hash, error) {
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("payment_tx: invalid transaction hash %q", raw)
	}
	return common.BytesToHash(b), nil
}

func parseAddress(field, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.Errorf("%s: invalid address %q", field, raw)
	}
	return common.HexToAddress(raw), nil
}

// parseTokenID 十进制或 0x 前缀十六进制，非负
func parseTokenID(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw, base = raw[2:], 16
	}
	v, ok := new(big.Int).SetString(raw, base)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, errors.Errorf("token_id: invalid value %q", raw)
	}
	return v, nil
}

func assetFromPath(c *gin.Context) (common.Address, *big.Int, bool) {
	collection, err := parseAddress("collection", c.Param("collection"))
	if err != nil {
		badRequest(c, err)
		return common.Address{}, nil, false
	}
	tokenID, err := parseTokenID(c.Param("tokenId"))
	if err != nil {
		badRequest(c, err)
		return common.Address{}, nil, false
	}
	return collection, tokenID, true
}

func listingResponse(collection common.Address, tokenID *big.Int, l domain.Listing) marketapi.ListingResponse {
	price := l.Price
	if price == nil {
		price = new(big.Int)
	}
	return marketapi.ListingResponse{
		Collection: collection.Hex(),
		TokenID:    tokenID.String(),
		Listed:     l.IsListed(),
		Price:      price.String(),
		PriceETH:   domain.FormatEther(price),
		Seller:     l.Seller.Hex(),
	}
}

func proceedsResponse(who common.Address, amount *big.Int) marketapi.ProceedsResponse {
	return marketapi.ProceedsResponse{
		Address:   who.Hex(),
		Amount:    amount.String(),
		AmountETH: domain.FormatEther(amount),
	}
}
