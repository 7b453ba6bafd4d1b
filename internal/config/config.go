package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for BSC mainnet.
const (
	DefaultUniswapV3Factory     = "0xdB1d10011AD0Ff90774D0C6Bb92e5C5c8b4461F7"
	DefaultPancakeSwapV3Factory = "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"
	DefaultNativeToken          = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
	DefaultUSDT                 = "0x55d398326f99059ff775485246999027b3197955"
	DefaultUSDC                 = "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d"
)

// Config holds configuration values loaded from flags, env, .env or config file.
type Config struct {
	RPCURL     string
	RPCTimeout time.Duration

	DBPath      string
	PGDSN       string
	VolumeCache string

	SwapTopics      map[string]string
	Factories       []string
	NativeToken     string
	StableTokens    []string
	NativePricePool string

	LiquidityTTL    time.Duration
	PollInterval    time.Duration
	RetryDelay      time.Duration
	PriceInterval   time.Duration
	PersistInterval time.Duration
	RankInterval    time.Duration
	TopN            int

	HTTPBind string
	HTTPPort int
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
// A .env file in the working directory is loaded into the environment first.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("db-path", "db.sqlite")
	v.SetDefault("volume-cache", "volume_cache.json")
	v.SetDefault("factories", []string{DefaultUniswapV3Factory, DefaultPancakeSwapV3Factory})
	v.SetDefault("native-token", DefaultNativeToken)
	v.SetDefault("stable-tokens", []string{DefaultUSDT, DefaultUSDC})
	v.SetDefault("liquidity-ttl", 300*time.Second)
	v.SetDefault("poll-interval", time.Second)
	v.SetDefault("retry-delay", time.Second)
	v.SetDefault("price-interval", 60*time.Second)
	v.SetDefault("persist-interval", 10*time.Second)
	v.SetDefault("rank-interval", 60*time.Second)
	v.SetDefault("top-n", 10)
	v.SetDefault("http-bind", "127.0.0.1")
	v.SetDefault("http-port", 8711)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		RPCTimeout:      v.GetDuration("rpc-timeout"),
		DBPath:          v.GetString("db-path"),
		PGDSN:           v.GetString("pg-dsn"),
		VolumeCache:     v.GetString("volume-cache"),
		SwapTopics:      getStringMap(v, "swap-topics"),
		Factories:       getStringSlice(v, "factories"),
		NativeToken:     strings.ToLower(strings.TrimSpace(v.GetString("native-token"))),
		StableTokens:    lowerAll(getStringSlice(v, "stable-tokens")),
		NativePricePool: strings.TrimSpace(v.GetString("native-price-pool")),
		LiquidityTTL:    v.GetDuration("liquidity-ttl"),
		PollInterval:    v.GetDuration("poll-interval"),
		RetryDelay:      v.GetDuration("retry-delay"),
		PriceInterval:   v.GetDuration("price-interval"),
		PersistInterval: v.GetDuration("persist-interval"),
		RankInterval:    v.GetDuration("rank-interval"),
		TopN:            v.GetInt("top-n"),
		HTTPBind:        v.GetString("http-bind"),
		HTTPPort:        v.GetInt("http-port"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings a scan needs before any connection is made.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.NativePricePool == "" {
		return fmt.Errorf("native price pool is required")
	}
	if !common.IsHexAddress(c.NativePricePool) {
		return fmt.Errorf("invalid native price pool: %s", c.NativePricePool)
	}
	if !common.IsHexAddress(c.NativeToken) {
		return fmt.Errorf("invalid native token: %s", c.NativeToken)
	}
	if len(c.Factories) == 0 {
		return fmt.Errorf("factory allow-list is empty")
	}
	for _, f := range c.Factories {
		if !common.IsHexAddress(f) {
			return fmt.Errorf("invalid factory address: %s", f)
		}
	}
	for _, s := range c.StableTokens {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid stable token: %s", s)
		}
	}
	if c.DBPath == "" && c.PGDSN == "" {
		return fmt.Errorf("db path or pg dsn is required")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// getStringMap accepts a config-file table or a "key=value,key=value" string.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, item := range typed {
			out[k] = fmt.Sprintf("%v", item)
		}
		return out
	case string:
		return parseStringMap(typed)
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	for _, pair := range strings.Split(input, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func lowerAll(items []string) []string {
	for i := range items {
		items[i] = strings.ToLower(items[i])
	}
	return items
}
