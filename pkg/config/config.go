package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// 存储 / oracle / 打款的可选模式
const (
	StoreMemory  = "memory"
	StoreBadger  = "badger"
	OracleMemory = "memory"
	OracleERC721 = "erc721"
	PayoutMemory = "memory"
	PayoutNative = "native"
)

// DefaultMarketplaceAddress 内存模式下未配置市场地址时使用
const DefaultMarketplaceAddress = "0x000000000000000000000000000000000000A11E"

// StoreConfig 挂单 / 收益存储配置
type StoreConfig struct {
	Backend       string // memory | badger
	Path          string // badger 数据目录
	EncryptionKey string // hex 编码的 16/24/32 字节 AES 密钥（可选）
}

// JournalConfig 事件日志配置
type JournalConfig struct {
	Path string // SQLite 文件路径，为空则不落库
}

// ChainConfig 链上连接配置
type ChainConfig struct {
	RPCURL         string
	ChainID        int64
	PrivateKey     string
	Mnemonic       string
	DerivationPath string
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	JSON       bool
}

// RateLimitConfig API 限流配置（按调用方分桶）
type RateLimitConfig struct {
	Capacity     int
	RefillPerSec float64
}

// Config 应用配置
type Config struct {
	Listen             string
	MetricsListen      string // expvar/pprof 调试服务地址，为空则不启动
	MarketplaceAddress string
	DevRoutes          bool // 开放 /api/dev 铸造/授权接口（仅内存 oracle）
	Store              StoreConfig
	Journal            JournalConfig
	Chain              ChainConfig
	OracleMode         string
	PayoutMode         string
	Log                LogConfig
	RateLimit          RateLimitConfig
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	Listen             string `yaml:"listen" json:"listen"`
	MetricsListen      string `yaml:"metrics_listen" json:"metrics_listen"`
	MarketplaceAddress string `yaml:"marketplace_address" json:"marketplace_address"`
	DevRoutes          *bool  `yaml:"dev_routes" json:"dev_routes"`
	Store              struct {
		Backend       string `yaml:"backend" json:"backend"`
		Path          string `yaml:"path" json:"path"`
		EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	} `yaml:"store" json:"store"`
	Journal struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"journal" json:"journal"`
	Chain struct {
		RPCURL         string `yaml:"rpc_url" json:"rpc_url"`
		ChainID        int64  `yaml:"chain_id" json:"chain_id"`
		PrivateKey     string `yaml:"private_key" json:"private_key"`
		Mnemonic       string `yaml:"mnemonic" json:"mnemonic"`
		DerivationPath string `yaml:"derivation_path" json:"derivation_path"`
	} `yaml:"chain" json:"chain"`
	Oracle struct {
		Mode string `yaml:"mode" json:"mode"`
	} `yaml:"oracle" json:"oracle"`
	Payout struct {
		Mode string `yaml:"mode" json:"mode"`
	} `yaml:"payout" json:"payout"`
	Log struct {
		Level      string `yaml:"level" json:"level"`
		File       string `yaml:"file" json:"file"`
		MaxSize    int    `yaml:"max_size" json:"max_size"`
		MaxBackups int    `yaml:"max_backups" json:"max_backups"`
		MaxAge     int    `yaml:"max_age" json:"max_age"`
		Compress   *bool  `yaml:"compress" json:"compress"`
		JSON       *bool  `yaml:"json" json:"json"`
	} `yaml:"log" json:"log"`
	RateLimit struct {
		Capacity     int     `yaml:"capacity" json:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec" json:"refill_per_sec"`
	} `yaml:"rate_limit" json:"rate_limit"`
}

// Load 加载配置。优先级：配置文件 > 环境变量 > 默认值；filePath 为空时只读环境变量
func Load(filePath string) (*Config, error) {
	cf := &ConfigFile{}
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}

	cfg := &Config{
		Listen:             pick(cf.Listen, getEnv("MARKET_LISTEN", ":8080")),
		MetricsListen:      pick(cf.MetricsListen, getEnv("MARKET_METRICS_LISTEN", "")),
		MarketplaceAddress: pick(cf.MarketplaceAddress, getEnv("MARKET_ADDRESS", "")),
		DevRoutes:          pickBool(cf.DevRoutes, parseBoolEnv("MARKET_DEV_ROUTES", false)),
		Store: StoreConfig{
			Backend:       strings.ToLower(pick(cf.Store.Backend, getEnv("MARKET_STORE_BACKEND", StoreMemory))),
			Path:          pick(cf.Store.Path, getEnv("MARKET_STORE_PATH", "data/market")),
			EncryptionKey: pick(cf.Store.EncryptionKey, getEnv("MARKET_STORE_ENCRYPTION_KEY", "")),
		},
		Journal: JournalConfig{
			Path: pick(cf.Journal.Path, getEnv("MARKET_JOURNAL_PATH", "data/journal.db")),
		},
		Chain: ChainConfig{
			RPCURL:         pick(cf.Chain.RPCURL, getEnv("MARKET_RPC_URL", "")),
			ChainID:        pickInt64(cf.Chain.ChainID, parseInt64Env("MARKET_CHAIN_ID", 1)),
			PrivateKey:     pick(cf.Chain.PrivateKey, getEnv("MARKET_PRIVATE_KEY", "")),
			Mnemonic:       pick(cf.Chain.Mnemonic, getEnv("MARKET_MNEMONIC", "")),
			DerivationPath: pick(cf.Chain.DerivationPath, getEnv("MARKET_DERIVATION_PATH", "m/44'/60'/0'/0/0")),
		},
		OracleMode: strings.ToLower(pick(cf.Oracle.Mode, getEnv("MARKET_ORACLE_MODE", OracleMemory))),
		PayoutMode: strings.ToLower(pick(cf.Payout.Mode, getEnv("MARKET_PAYOUT_MODE", PayoutMemory))),
		Log: LogConfig{
			Level:      pick(cf.Log.Level, getEnv("LOG_LEVEL", "info")),
			File:       pick(cf.Log.File, getEnv("LOG_FILE", "logs/marketd.log")),
			MaxSize:    pickInt(cf.Log.MaxSize, parseIntEnv("LOG_MAX_SIZE", 100)),
			MaxBackups: pickInt(cf.Log.MaxBackups, parseIntEnv("LOG_MAX_BACKUPS", 3)),
			MaxAge:     pickInt(cf.Log.MaxAge, parseIntEnv("LOG_MAX_AGE", 7)),
			Compress:   pickBool(cf.Log.Compress, parseBoolEnv("LOG_COMPRESS", true)),
			JSON:       pickBool(cf.Log.JSON, parseBoolEnv("LOG_JSON", false)),
		},
		RateLimit: RateLimitConfig{
			Capacity:     pickInt(cf.RateLimit.Capacity, parseIntEnv("MARKET_RATE_LIMIT_CAPACITY", 20)),
			RefillPerSec: pickFloat(cf.RateLimit.RefillPerSec, parseFloatEnv("MARKET_RATE_LIMIT_REFILL", 10)),
		},
	}

	if cfg.MarketplaceAddress == "" && cfg.OracleMode == OracleMemory && cfg.PayoutMode == PayoutMemory {
		cfg.MarketplaceAddress = DefaultMarketplaceAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return &configFile, nil
}

// NeedsChain 是否需要连接链上节点
func (c *Config) NeedsChain() bool {
	return c.OracleMode == OracleERC721 || c.PayoutMode == PayoutNative
}

// EncryptionKeyBytes 解码存储加密密钥；未配置时返回 nil
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.Store.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(strings.TrimPrefix(c.Store.EncryptionKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("MARKET_STORE_ENCRYPTION_KEY 不是合法的 hex: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, fmt.Errorf("MARKET_STORE_ENCRYPTION_KEY 长度必须是 16/24/32 字节，实际 %d", len(key))
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen 不能为空")
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store.backend=badger 时 store.path 不能为空")
		}
		if _, err := c.EncryptionKeyBytes(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("未知的存储后端: %s", c.Store.Backend)
	}

	switch c.OracleMode {
	case OracleMemory, OracleERC721:
	default:
		return fmt.Errorf("未知的 oracle 模式: %s", c.OracleMode)
	}
	switch c.PayoutMode {
	case PayoutMemory, PayoutNative:
	default:
		return fmt.Errorf("未知的打款模式: %s", c.PayoutMode)
	}

	if c.NeedsChain() {
		if c.Chain.RPCURL == "" {
			return fmt.Errorf("链上模式需要配置 MARKET_RPC_URL")
		}
		if c.Chain.PrivateKey == "" && c.Chain.Mnemonic == "" {
			return fmt.Errorf("链上模式需要配置 MARKET_PRIVATE_KEY 或 MARKET_MNEMONIC")
		}
		if c.Chain.ChainID <= 0 {
			return fmt.Errorf("chain_id 必须大于 0")
		}
		// 链上打款时买家必须先付款再凭交易哈希购买，已用付款要落盘防止重启后被重复使用
		if c.PayoutMode == PayoutNative && c.Store.Backend != StoreBadger {
			return fmt.Errorf("payout.mode=native 需要 store.backend=badger 记录已核验的付款")
		}
	} else if c.DevRoutes && c.OracleMode != OracleMemory {
		return fmt.Errorf("dev_routes 只能在内存 oracle 下开启")
	}

	if c.MarketplaceAddress != "" && !common.IsHexAddress(c.MarketplaceAddress) {
		return fmt.Errorf("marketplace_address 不是合法地址: %s", c.MarketplaceAddress)
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.RefillPerSec < 0 {
		return fmt.Errorf("rate_limit 不能为负数")
	}
	return nil
}

func pick(configValue, fallback string) string {
	if configValue != "" {
		return configValue
	}
	return fallback
}

func pickInt(configValue, fallback int) int {
	if configValue != 0 {
		return configValue
	}
	return fallback
}

func pickInt64(configValue, fallback int64) int64 {
	if configValue != 0 {
		return configValue
	}
	return fallback
}

func pickFloat(configValue, fallback float64) float64 {
	if configValue != 0 {
		return configValue
	}
	return fallback
}

func pickBool(configValue *bool, fallback bool) bool {
	if configValue != nil {
		return *configValue
	}
	return fallback
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseFloatEnv 解析浮点数环境变量
func parseFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
