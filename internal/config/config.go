package config

import (
	"fmt"
	"strings"
	"time"

	"creator-market-sim/internal/market"
	"creator-market-sim/internal/models"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Simulation  Simulation   `mapstructure:"simulation"`
	Instruments []Instrument `mapstructure:"instruments"`
	Logger      Logger       `mapstructure:"logger"`
	Server      Server       `mapstructure:"server"`
	Database    Database     `mapstructure:"database"`
	Client      Client       `mapstructure:"client"`
}

// Simulation holds the cadence and shape of the market simulation.
type Simulation struct {
	PriceIntervalMin time.Duration `mapstructure:"price_interval_min"`
	PriceIntervalMax time.Duration `mapstructure:"price_interval_max"`
	BookIntervalMin  time.Duration `mapstructure:"book_interval_min"`
	BookIntervalMax  time.Duration `mapstructure:"book_interval_max"`
	TradeIntervalMin time.Duration `mapstructure:"trade_interval_min"`
	TradeIntervalMax time.Duration `mapstructure:"trade_interval_max"`
	TradeProbability float64       `mapstructure:"trade_probability"`
	MaxPriceStep     float64       `mapstructure:"max_price_step"`
	MaxTradeSlippage float64       `mapstructure:"max_trade_slippage"`
	PriceFloor       float64       `mapstructure:"price_floor"`
	PriceCeiling     float64       `mapstructure:"price_ceiling"`
	TraderPool       int           `mapstructure:"trader_pool"`
	Seed             int64         `mapstructure:"seed"`
	LatencyMin       time.Duration `mapstructure:"latency_min"`
	LatencyMax       time.Duration `mapstructure:"latency_max"`
	TradeWindow      int           `mapstructure:"trade_window"`
	AutoConnect      bool          `mapstructure:"auto_connect"`
}

// Instrument is the seed definition of one creator token.
type Instrument struct {
	ID                 string  `mapstructure:"id"`
	Symbol             string  `mapstructure:"symbol"`
	Price              float64 `mapstructure:"price"`
	InitialPrice       float64 `mapstructure:"initial_price"`
	TotalSupply        float64 `mapstructure:"total_supply"`
	AvailableSupply    float64 `mapstructure:"available_supply"`
	EngagementScore    float64 `mapstructure:"engagement_score"`
	AIScore            float64 `mapstructure:"ai_score"`
	RevenueUSD         float64 `mapstructure:"revenue_usd"`
	AverageDailyVolume float64 `mapstructure:"average_daily_volume"`
	LaunchAgeDays      int     `mapstructure:"launch_age_days"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the configuration for the HTTP/WebSocket server.
type Server struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	WSQueueSize     int           `mapstructure:"ws_queue_size"`
}

// Database holds the configuration for the trade journal.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Client holds the configuration for the remote API client.
type Client struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return
	}
	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	feed := market.DefaultFeedConfig()
	v.SetDefault("simulation.price_interval_min", feed.PriceIntervalMin)
	v.SetDefault("simulation.price_interval_max", feed.PriceIntervalMax)
	v.SetDefault("simulation.book_interval_min", feed.BookIntervalMin)
	v.SetDefault("simulation.book_interval_max", feed.BookIntervalMax)
	v.SetDefault("simulation.trade_interval_min", feed.TradeIntervalMin)
	v.SetDefault("simulation.trade_interval_max", feed.TradeIntervalMax)
	v.SetDefault("simulation.trade_probability", feed.TradeProbability)
	v.SetDefault("simulation.max_price_step", feed.MaxPriceStep)
	v.SetDefault("simulation.max_trade_slippage", feed.MaxTradeSlippage)
	v.SetDefault("simulation.trader_pool", feed.TraderPool)
	v.SetDefault("simulation.latency_min", 300*time.Millisecond)
	v.SetDefault("simulation.latency_max", 800*time.Millisecond)
	v.SetDefault("simulation.trade_window", 50)
	v.SetDefault("simulation.auto_connect", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.ws_queue_size", 256)

	v.SetDefault("database.dsn", "file::memory:?cache=shared")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 5*time.Second)
	v.SetDefault("client.rate_limit", 20) // requests per second
	v.SetDefault("client.rate_limit_burst", 5)
	v.SetDefault("client.max_retries", 3)
}

// Validate checks the configuration for values the simulation cannot run with.
func (c *Config) Validate() error {
	s := c.Simulation
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument must be configured")
	}
	for _, pair := range [][2]time.Duration{
		{s.PriceIntervalMin, s.PriceIntervalMax},
		{s.BookIntervalMin, s.BookIntervalMax},
		{s.TradeIntervalMin, s.TradeIntervalMax},
		{s.LatencyMin, s.LatencyMax},
	} {
		if pair[0] < 0 || pair[1] < pair[0] {
			return fmt.Errorf("invalid interval range [%s, %s]", pair[0], pair[1])
		}
	}
	if s.PriceIntervalMin <= 0 || s.BookIntervalMin <= 0 || s.TradeIntervalMin <= 0 {
		return fmt.Errorf("generator intervals must be positive")
	}
	if s.TradeProbability < 0 || s.TradeProbability > 1 {
		return fmt.Errorf("simulation.trade_probability must be within [0, 1], got %f", s.TradeProbability)
	}
	if s.PriceCeiling > 0 && s.PriceFloor > s.PriceCeiling {
		return fmt.Errorf("simulation.price_floor %f exceeds price_ceiling %f", s.PriceFloor, s.PriceCeiling)
	}
	for _, inst := range c.Instruments {
		if inst.EngagementScore < 0 || inst.EngagementScore > 100 || inst.AIScore < 0 || inst.AIScore > 100 {
			return fmt.Errorf("instrument %s: scores must be within [0, 100]", inst.ID)
		}
	}
	return nil
}

// FeedConfig converts the simulation section to the generator configuration.
func (s Simulation) FeedConfig() market.FeedConfig {
	return market.FeedConfig{
		PriceIntervalMin: s.PriceIntervalMin,
		PriceIntervalMax: s.PriceIntervalMax,
		BookIntervalMin:  s.BookIntervalMin,
		BookIntervalMax:  s.BookIntervalMax,
		TradeIntervalMin: s.TradeIntervalMin,
		TradeIntervalMax: s.TradeIntervalMax,
		TradeProbability: s.TradeProbability,
		MaxPriceStep:     s.MaxPriceStep,
		MaxTradeSlippage: s.MaxTradeSlippage,
		PriceFloor:       s.PriceFloor,
		PriceCeiling:     s.PriceCeiling,
		TraderPool:       s.TraderPool,
	}
}

// Catalogue converts the instrument seeds to domain instruments launched relative to now.
func (c *Config) Catalogue(now time.Time) []models.Instrument {
	out := make([]models.Instrument, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		initial := inst.InitialPrice
		if initial <= 0 {
			initial = inst.Price
		}
		out = append(out, models.Instrument{
			ID:                 inst.ID,
			Symbol:             inst.Symbol,
			CurrentPrice:       inst.Price,
			InitialPrice:       initial,
			TotalSupply:        inst.TotalSupply,
			AvailableSupply:    inst.AvailableSupply,
			EngagementScore:    inst.EngagementScore,
			AIScore:            inst.AIScore,
			RevenueUSD:         inst.RevenueUSD,
			AverageDailyVolume: inst.AverageDailyVolume,
			LaunchedAt:         now.Add(-time.Duration(inst.LaunchAgeDays) * 24 * time.Hour),
		})
	}
	return out
}
