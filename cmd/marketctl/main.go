// marketctl 市场 API 命令行客户端
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/pkg/sdk/client"
)

const usage = `usage: marketctl [-api URL] [-as ADDRESS] <command> [args]

commands:
  get      <collection> <tokenId>
  list     <collection> <tokenId> <price>
  reprice  <collection> <tokenId> <price>
  cancel   <collection> <tokenId>
  buy      <collection> <tokenId> <payment|paymentTxHash>
  proceeds
  withdraw
  events   [kind] [limit]
  mint     <collection> <tokenId>          (dev routes only)
  approve  <collection> <tokenId> [spender] (dev routes only)

amounts are wei, or ether with an "eth" suffix (e.g. 0.5eth)`

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", getenv("MARKET_API", "http://127.0.0.1:8080"), "market API base URL")
	as := flag.String("as", getenv("MARKET_CALLER", ""), "caller address")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*apiURL, client.WithTimeout(*timeout), client.WithRetry(2))
	if *as != "" {
		if !common.IsHexAddress(*as) {
			fatal(fmt.Errorf("invalid -as address %q", *as))
		}
		c = c.As(common.HexToAddress(*as))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := run(ctx, c, args[0], args[1:])
	if err != nil {
		fatal(err)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) (any, error) {
	switch cmd {
	case "get":
		collection, tokenID, err := assetArgs(args, 2)
		if err != nil {
			return nil, err
		}
		return c.GetListing(ctx, collection, tokenID)
	case "list", "reprice":
		collection, tokenID, err := assetArgs(args, 3)
		if err != nil {
			return nil, err
		}
		price, err := parseAmount(args[2])
		if err != nil {
			return nil, err
		}
		if cmd == "list" {
			return c.List(ctx, collection, tokenID, price)
		}
		return c.Reprice(ctx, collection, tokenID, price)
	case "cancel":
		collection, tokenID, err := assetArgs(args, 2)
		if err != nil {
			return nil, err
		}
		return nil, c.Cancel(ctx, collection, tokenID)
	case "buy":
		collection, tokenID, err := assetArgs(args, 3)
		if err != nil {
			return nil, err
		}
		if ref, ok := parseTxHash(args[2]); ok {
			paid, err := c.BuyWithDeposit(ctx, collection, tokenID, ref)
			if err != nil {
				return nil, err
			}
			return map[string]string{"payment": paid.String(), "payment_tx": ref.Hex()}, nil
		}
		payment, err := parseAmount(args[2])
		if err != nil {
			return nil, err
		}
		return nil, c.Buy(ctx, collection, tokenID, payment)
	case "proceeds", "withdraw":
		var (
			amount *big.Int
			err    error
		)
		if cmd == "proceeds" {
			amount, err = c.Proceeds(ctx)
		} else {
			amount, err = c.Withdraw(ctx)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount": amount.String(), "amount_eth": domain.FormatEther(amount)}, nil
	case "events":
		q := client.EventsQuery{}
		if len(args) > 0 {
			q.Kind = args[0]
		}
		if len(args) > 1 {
			if _, err := fmt.Sscanf(args[1], "%d", &q.Limit); err != nil {
				return nil, fmt.Errorf("invalid limit %q", args[1])
			}
		}
		return c.Events(ctx, q)
	case "mint":
		collection, tokenID, err := assetArgs(args, 2)
		if err != nil {
			return nil, err
		}
		return nil, c.Mint(ctx, collection, tokenID)
	case "approve":
		collection, tokenID, err := assetArgs(args, 2)
		if err != nil {
			return nil, err
		}
		var spender common.Address
		if len(args) > 2 {
			if !common.IsHexAddress(args[2]) {
				return nil, fmt.Errorf("invalid spender %q", args[2])
			}
			spender = common.HexToAddress(args[2])
		}
		return nil, c.Approve(ctx, collection, tokenID, spender)
	}
	return nil, fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func assetArgs(args []string, want int) (common.Address, *big.Int, error) {
	if len(args) < want {
		return common.Address{}, nil, fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}
	if !common.IsHexAddress(args[0]) {
		return common.Address{}, nil, fmt.Errorf("invalid collection %q", args[0])
	}
	tokenID, ok := new(big.Int).SetString(args[1], 10)
	if !ok || tokenID.Sign() < 0 {
		return common.Address{}, nil, fmt.Errorf("invalid token id %q", args[1])
	}
	return common.HexToAddress(args[0]), tokenID, nil
}

// parseTxHash 0x 开头的 32 字节哈希视为付款交易
func parseTxHash(s string) (common.Hash, bool) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

// parseAmount wei 整数，或带 eth 后缀的十进制
func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasSuffix(s, "eth") {
		return domain.ParseEther(strings.TrimSuffix(s, "eth"))
	}
	return domain.ParseAmount(s)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
