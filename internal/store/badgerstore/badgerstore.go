package badgerstore

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

const (
	listingPrefix  = "listing/"
	proceedsPrefix = "proceeds/"
	depositPrefix  = "deposit/"
)

// DB 基于 Badger 的持久化存储，挂单表和收益表共用一个库、按前缀区分。
// 加密由 Badger 选项提供（value log + key registry），不是本包实现的。
type DB struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil 表示不加密
	InMemory      bool   // 测试用，忽略 Path
	ReadOnly      bool
}

func Open(opts OpenOptions) (*DB, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("badgerstore: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path).WithReadOnly(opts.ReadOnly)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		// Badger requires index cache for encrypted workloads
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20) // 100MB
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Listings 挂单表视图
func (d *DB) Listings() *Listings { return &Listings{db: d.db} }

// Proceeds 收益表视图
func (d *DB) Proceeds() *Proceeds { return &Proceeds{db: d.db} }

// Deposits 已用付款表视图
func (d *DB) Deposits() *Deposits { return &Deposits{db: d.db} }

type listingRecord struct {
	Price  string         `json:"price"`
	Seller common.Address `json:"seller"`
}

func listingKey(key domain.AssetKey) []byte {
	return []byte(listingPrefix + strings.ToLower(key.Collection.Hex()) + "/" + key.TokenID.Hex())
}

func proceedsKey(party common.Address) []byte {
	return []byte(proceedsPrefix + strings.ToLower(party.Hex()))
}

// Listings 挂单表
type Listings struct {
	db *badger.DB
}

func (s *Listings) Get(key domain.AssetKey) (domain.Listing, error) {
	out := domain.EmptyListing()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(listingKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var rec listingRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode listing %s: %w", key, err)
			}
			price, ok := new(big.Int).SetString(rec.Price, 10)
			if !ok {
				return fmt.Errorf("decode listing %s: bad price %q", key, rec.Price)
			}
			out = domain.Listing{Price: price, Seller: rec.Seller}
			return nil
		})
	})
	if err != nil {
		return domain.EmptyListing(), err
	}
	return out, nil
}

func (s *Listings) Put(key domain.AssetKey, listing domain.Listing) error {
	price := listing.Price
	if price == nil {
		price = new(big.Int)
	}
	b, err := json.Marshal(listingRecord{Price: price.String(), Seller: listing.Seller})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(listingKey(key), b)
	})
}

func (s *Listings) Delete(key domain.AssetKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(listingKey(key))
	})
}

// Proceeds 收益表，余额以 big-endian 字节保存
type Proceeds struct {
	db *badger.DB
}

func readBalance(txn *badger.Txn, party common.Address) (*big.Int, error) {
	item, err := txn.Get(proceedsKey(party))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return new(big.Int), nil
		}
		return nil, err
	}
	out := new(big.Int)
	err = item.Value(func(val []byte) error {
		out.SetBytes(val)
		return nil
	})
	return out, err
}

func (s *Proceeds) Balance(party common.Address) (*big.Int, error) {
	var out *big.Int
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = readBalance(txn, party)
		return err
	})
	return out, err
}

func (s *Proceeds) update(party common.Address, fn func(cur *big.Int) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		cur, err := readBalance(txn, party)
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		return txn.Set(proceedsKey(party), cur.Bytes())
	})
}

func (s *Proceeds) Credit(party common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	return s.update(party, func(cur *big.Int) error {
		cur.Add(cur, amount)
		return nil
	})
}

func (s *Proceeds) Debit(party common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	return s.update(party, func(cur *big.Int) error {
		if cur.Cmp(amount) < 0 {
			return fmt.Errorf("debit %s from %s: insufficient balance", amount, party.Hex())
		}
		cur.Sub(cur, amount)
		return nil
	})
}

func (s *Proceeds) Reset(party common.Address) error {
	return s.update(party, func(cur *big.Int) error {
		cur.SetInt64(0)
		return nil
	})
}

// Deposits 已用付款表，value 只作占位
type Deposits struct {
	db *badger.DB
}

func depositKey(ref common.Hash) []byte {
	return []byte(depositPrefix + ref.Hex())
}

// Claim 在一个读写事务里检查并写入；并发 Claim 冲突时 badger 返回 ErrConflict，按已使用处理
func (s *Deposits) Claim(ref common.Hash) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(depositKey(ref))
		if err == nil {
			return domain.ErrDepositUsed
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(depositKey(ref), []byte{1})
	})
	if errors.Is(err, badger.ErrConflict) {
		return domain.ErrDepositUsed
	}
	return err
}

func (s *Deposits) Release(ref common.Hash) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(depositKey(ref))
	})
}

// ParseKey expects 32 bytes (base64 or hex). Returns nil if input is empty.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	rawHex := strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(rawHex); err == nil {
		if len(b) == 32 {
			return b, nil
		}
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
