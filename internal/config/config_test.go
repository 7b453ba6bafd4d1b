package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "db.sqlite", cfg.DBPath)
	assert.Equal(t, "volume_cache.json", cfg.VolumeCache)
	assert.Equal(t, []string{DefaultUniswapV3Factory, DefaultPancakeSwapV3Factory}, cfg.Factories)
	assert.Equal(t, DefaultNativeToken, cfg.NativeToken)
	assert.Equal(t, []string{DefaultUSDT, DefaultUSDC}, cfg.StableTokens)
	assert.Equal(t, 300*time.Second, cfg.LiquidityTTL)
	assert.Equal(t, 10*time.Second, cfg.PersistInterval)
	assert.Equal(t, 60*time.Second, cfg.RankInterval)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, 8711, cfg.HTTPPort)
	assert.Empty(t, cfg.SwapTopics)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCANNER_RPC", "http://localhost:8545")
	t.Setenv("SCANNER_FACTORIES", "0x01, 0x02,")
	t.Setenv("SCANNER_SWAP_TOPICS", "0xaa=Foo, 0xbb = Bar, broken")
	t.Setenv("SCANNER_LIQUIDITY_TTL", "120s")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, []string{"0x01", "0x02"}, cfg.Factories)
	assert.Equal(t, map[string]string{"0xaa": "Foo", "0xbb": "Bar"}, cfg.SwapTopics)
	assert.Equal(t, 120*time.Second, cfg.LiquidityTTL)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SCANNER_TOP_N", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("stable-tokens", nil, "")
	flags.Int("top-n", 10, "")
	require.NoError(t, flags.Parse([]string{"--stable-tokens=0xAB,0xCD", "--top-n=5"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xab", "0xcd"}, cfg.StableTokens)
	assert.Equal(t, 5, cfg.TopN)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.yaml")
	content := `
rpc: https://bsc-dataseed.example
native-price-pool: "0x36696169C63e42cd08ce11f5deeBbCeBae652050"
swap-topics:
  "0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67": UniswapV3
factories:
  - "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://bsc-dataseed.example", cfg.RPCURL)
	assert.Equal(t, map[string]string{
		"0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67": "UniswapV3",
	}, cfg.SwapTopics)
	assert.Equal(t, []string{DefaultPancakeSwapV3Factory}, cfg.Factories)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base, err := Load("", nil)
	require.NoError(t, err)
	base.RPCURL = "http://localhost:8545"
	base.NativePricePool = "0x36696169C63e42cd08ce11f5deeBbCeBae652050"
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"no rpc":        func(c *Config) { c.RPCURL = "" },
		"no price pool": func(c *Config) { c.NativePricePool = "" },
		"bad factory":   func(c *Config) { c.Factories = []string{"0x01"} },
		"no factories":  func(c *Config) { c.Factories = nil },
		"bad stable":    func(c *Config) { c.StableTokens = []string{"usdt"} },
		"no store":      func(c *Config) { c.DBPath = ""; c.PGDSN = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			c.Factories = append([]string(nil), base.Factories...)
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := Config{}.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = Config{LogLevel: "debug"}.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = Config{LogLevel: "loud"}.NewLogger()
	assert.ErrorContains(t, err, "loud")
}
