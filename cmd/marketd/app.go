package main

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/amzilayoub/nft-marketplace/internal/api/server"
	"github.com/amzilayoub/nft-marketplace/internal/chain"
	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/internal/journal"
	"github.com/amzilayoub/nft-marketplace/internal/marketplace"
	"github.com/amzilayoub/nft-marketplace/internal/metrics"
	"github.com/amzilayoub/nft-marketplace/internal/ports"
	"github.com/amzilayoub/nft-marketplace/internal/store"
	"github.com/amzilayoub/nft-marketplace/internal/store/badgerstore"
	"github.com/amzilayoub/nft-marketplace/internal/store/memstore"
	"github.com/amzilayoub/nft-marketplace/pkg/config"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
	"github.com/amzilayoub/nft-marketplace/pkg/ratelimit"
	"github.com/amzilayoub/nft-marketplace/pkg/shutdown"
)

// app 组装好的进程内组件
type app struct {
	cfg      *config.Config
	market   *marketplace.Marketplace
	api      *server.Server
	http     *http.Server
	shutdown *shutdown.Manager
}

// buildApp 按配置组装存储、oracle、打款通道、事件总线和 HTTP 服务。
// 失败时已打开的资源会被关闭。
func buildApp(cfg *config.Config) (_ *app, err error) {
	sm := shutdown.NewManager()
	defer func() {
		if err != nil {
			_ = sm.Shutdown(context.Background())
		}
	}()

	stores, err := openStores(cfg, sm)
	if err != nil {
		return nil, err
	}

	var (
		client *ethclient.Client
		sender *chain.Sender
	)
	if cfg.NeedsChain() {
		if client, sender, err = dialChain(cfg); err != nil {
			return nil, err
		}
		sm.OnShutdown("rpc", func(context.Context) error {
			client.Close()
			return nil
		})
	}

	address := common.HexToAddress(cfg.MarketplaceAddress)
	if cfg.MarketplaceAddress == "" {
		if sender == nil {
			return nil, errors.New("marketplace address is required")
		}
		address = sender.From()
	}
	if sender != nil && address != sender.From() {
		return nil, errors.Errorf("marketplace address %s must be the operator %s in chain mode", address.Hex(), sender.From().Hex())
	}

	var (
		oracle   ports.OwnershipOracle
		registry *chain.Registry
	)
	switch cfg.OracleMode {
	case config.OracleERC721:
		if oracle, err = chain.NewERC721Oracle(client, sender); err != nil {
			return nil, err
		}
	default:
		registry = chain.NewRegistry(address)
		oracle = registry
	}

	var (
		payments ports.PaymentChannel
		deposits ports.DepositVerifier
	)
	switch cfg.PayoutMode {
	case config.PayoutNative:
		payments = chain.NewNativePayout(sender)
		// 真金白银打款，货款也必须在链上核验
		deposits = chain.NewDepositVerifier(client, sender.From(), big.NewInt(cfg.Chain.ChainID), stores.deposits)
	default:
		payments = chain.NewBank()
	}

	bus := events.NewBus(events.LogHandler{}, metrics.EventCounter{})
	var j *journal.Journal
	if cfg.Journal.Path != "" {
		if j, err = journal.Open(cfg.Journal.Path); err != nil {
			return nil, err
		}
		sm.OnShutdown("journal", func(context.Context) error { return j.Close() })
		bus.Subscribe(j)
	}

	market, err := marketplace.New(marketplace.Config{
		Address:  address,
		Listings: stores.listings,
		Proceeds: stores.proceeds,
		Oracle:   oracle,
		Payments: payments,
		Deposits: deposits,
		Events:   bus,
	})
	if err != nil {
		return nil, err
	}

	apiCfg := server.Config{Market: market, Bus: bus, Journal: j}
	if cfg.RateLimit.Capacity > 0 {
		apiCfg.Limiter = ratelimit.NewKeyed(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
	}
	if cfg.DevRoutes && registry != nil {
		apiCfg.Dev = registry
	}
	api, err := server.New(apiCfg)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsListen != "" {
		ms, err := metrics.Start(cfg.MetricsListen)
		if err != nil {
			return nil, errors.Wrap(err, "start metrics server")
		}
		sm.OnShutdown("metrics", ms.Shutdown)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	sm.OnShutdown("http", httpSrv.Shutdown)
	sm.OnShutdown("ws", func(context.Context) error { return api.Close() })

	logger.WithField("marketplace", address.Hex()).
		WithField("store", cfg.Store.Backend).
		WithField("oracle", cfg.OracleMode).
		WithField("payout", cfg.PayoutMode).
		WithField("deposits", deposits != nil).
		Info("marketplace ready")

	return &app{cfg: cfg, market: market, api: api, http: httpSrv, shutdown: sm}, nil
}

type storeSet struct {
	listings store.ListingStore
	proceeds store.ProceedsStore
	deposits store.DepositStore
}

func openStores(cfg *config.Config, sm *shutdown.Manager) (*storeSet, error) {
	if cfg.Store.Backend != config.StoreBadger {
		return &storeSet{
			listings: memstore.NewListings(),
			proceeds: memstore.NewProceeds(),
			deposits: memstore.NewDeposits(),
		}, nil
	}
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return nil, err
	}
	db, err := badgerstore.Open(badgerstore.OpenOptions{Path: cfg.Store.Path, EncryptionKey: key})
	if err != nil {
		return nil, err
	}
	sm.OnShutdown("store", func(context.Context) error { return db.Close() })
	return &storeSet{listings: db.Listings(), proceeds: db.Proceeds(), deposits: db.Deposits()}, nil
}

func dialChain(cfg *config.Config) (*ethclient.Client, *chain.Sender, error) {
	key, err := chain.LoadKey(cfg.Chain.PrivateKey, cfg.Chain.Mnemonic, cfg.Chain.DerivationPath)
	if err != nil {
		return nil, nil, err
	}
	client, err := chain.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	sender := chain.NewSender(client, key, big.NewInt(cfg.Chain.ChainID))
	logger.WithField("operator", sender.From().Hex()).Info("connected to chain")
	return client, sender, nil
}
