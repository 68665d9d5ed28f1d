package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"cosmossdk.io/log"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"lottochain/internal/ledger"
	"lottochain/internal/lottery"
)

const (
	EnvPrefix      = "LOTTOD"
	configFileName = "lottod"
)

type ABCIConfig struct {
	Addr      string `mapstructure:"addr"`
	Transport string `mapstructure:"transport"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // plain | json
}

type LotteryConfig struct {
	ProgramID    string   `mapstructure:"program_id"`
	MaxNumber    uint8    `mapstructure:"max_number"`
	MinMatches   uint8    `mapstructure:"min_matches"`
	TierShareBps []uint16 `mapstructure:"tier_share_bps"`
}

type NATSConfig struct {
	// URL empty disables event publishing.
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Subject string `mapstructure:"subject"`
}

type Config struct {
	Home    string        `mapstructure:"home"`
	ABCI    ABCIConfig    `mapstructure:"abci"`
	Log     LogConfig     `mapstructure:"log"`
	Lottery LotteryConfig `mapstructure:"lottery"`
	Rent    ledger.Rent   `mapstructure:"rent"`
	NATS    NATSConfig    `mapstructure:"nats"`
}

func setDefaults(v *viper.Viper) {
	params := lottery.DefaultParams()
	rent := ledger.DefaultRent()

	v.SetDefault("home", ".lottod")
	v.SetDefault("abci.addr", "tcp://127.0.0.1:26658")
	v.SetDefault("abci.transport", "socket")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "plain")
	v.SetDefault("lottery.program_id", lottery.DefaultProgramID.String())
	v.SetDefault("lottery.max_number", params.MaxNumber)
	v.SetDefault("lottery.min_matches", params.MinMatches)
	v.SetDefault("lottery.tier_share_bps", params.TierShareBps[:])
	v.SetDefault("rent.lamports_per_byte_year", rent.LamportsPerByteYear)
	v.SetDefault("rent.exemption_years", rent.ExemptionYears)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "lottochain")
}

// Load resolves configuration from defaults, <home>/config/lottod.toml and
// LOTTOD_* environment variables, in increasing priority. Flags bound to v
// win over all of them.
func Load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(v.GetString("home"), "config"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Home == "" {
		return fmt.Errorf("home must be set")
	}
	switch c.ABCI.Transport {
	case "socket", "grpc":
	default:
		return fmt.Errorf("abci.transport must be socket or grpc, got %q", c.ABCI.Transport)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "plain", "json":
	default:
		return fmt.Errorf("log.format must be plain or json, got %q", c.Log.Format)
	}
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	params, err := c.LotteryParams()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("lottery: %w", err)
	}
	if c.Rent.LamportsPerByteYear == 0 || c.Rent.ExemptionYears == 0 {
		return fmt.Errorf("rent parameters must be positive")
	}
	return nil
}

func (c Config) ProgramID() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.Lottery.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("lottery.program_id: %w", err)
	}
	return id, nil
}

func (c Config) LotteryParams() (lottery.Params, error) {
	if len(c.Lottery.TierShareBps) != lottery.Tiers {
		return lottery.Params{}, fmt.Errorf("lottery.tier_share_bps needs %d entries, got %d", lottery.Tiers, len(c.Lottery.TierShareBps))
	}
	p := lottery.Params{
		MaxNumber:  c.Lottery.MaxNumber,
		MinMatches: c.Lottery.MinMatches,
	}
	copy(p.TierShareBps[:], c.Lottery.TierShareBps)
	return p, nil
}

// Logger builds the process logger described by the log section.
func (c Config) Logger(w io.Writer) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	opts := []log.Option{log.LevelOption(lvl)}
	if c.Log.Format == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(w, opts...), nil
}
