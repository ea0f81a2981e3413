package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/buildtall-systems/kitchen/internal/persistence"
	"github.com/buildtall-systems/kitchen/internal/worker"
)

// ErrInvalidConfig indicates a setting outside its allowed values.
var ErrInvalidConfig = errors.New("invalid config")

// Order sources.
const (
	SourceSimulated = "simulated"
	SourceRandom    = "random"
)

// Config holds all application configuration.
type Config struct {
	Verbose     bool
	Log         LogConfig
	Database    DatabaseConfig
	Fulfillment FulfillmentConfig
	Mailbox     MailboxConfig
	Inventory   map[string]int // starting stock
	Orders      OrdersConfig
}

// LogConfig holds logger settings.
type LogConfig struct {
	Format string // text or json
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Path string
}

// FulfillmentConfig holds how orders are applied and recorded.
type FulfillmentConfig struct {
	Policy      worker.Policy
	Consistency persistence.Consistency
}

// MailboxConfig holds role mailbox settings.
type MailboxConfig struct {
	Size int
}

// OrdersConfig selects where orders come from.
type OrdersConfig struct {
	Source      string
	Count       int
	Seed        uint64
	MaxQuantity int
}

// SetDefaults registers default values with Viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "kitchen.db")
	v.SetDefault("fulfillment.policy", string(worker.BestEffort))
	v.SetDefault("fulfillment.consistency", string(persistence.Strict))
	v.SetDefault("mailbox.size", 16)
	v.SetDefault("inventory", map[string]int{"pizza": 10, "hamburguesa": 15, "soda": 20})
	v.SetDefault("orders.source", SourceSimulated)
	v.SetDefault("orders.count", 10)
	v.SetDefault("orders.seed", 1)
	v.SetDefault("orders.max_quantity", 5)
}

// Load reads configuration from the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v and validates it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Verbose: v.GetBool("verbose"),
		Log: LogConfig{
			Format: v.GetString("log.format"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Mailbox: MailboxConfig{
			Size: v.GetInt("mailbox.size"),
		},
		Orders: OrdersConfig{
			Source:      v.GetString("orders.source"),
			Count:       v.GetInt("orders.count"),
			Seed:        v.GetUint64("orders.seed"),
			MaxQuantity: v.GetInt("orders.max_quantity"),
		},
	}

	policy, err := worker.ParsePolicy(v.GetString("fulfillment.policy"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Fulfillment.Policy = policy

	consistency, err := persistence.ParseConsistency(v.GetString("fulfillment.consistency"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Fulfillment.Consistency = consistency

	if err := v.UnmarshalKey("inventory", &cfg.Inventory); err != nil {
		return nil, fmt.Errorf("%w: inventory: %v", ErrInvalidConfig, err)
	}
	for item, qty := range cfg.Inventory {
		if qty < 0 {
			return nil, fmt.Errorf("%w: inventory %s is negative (%d)", ErrInvalidConfig, item, qty)
		}
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidConfig, cfg.Log.Format)
	}
	switch cfg.Orders.Source {
	case SourceSimulated, SourceRandom:
	default:
		return nil, fmt.Errorf("%w: orders.source %q (want %s or %s)", ErrInvalidConfig, cfg.Orders.Source, SourceSimulated, SourceRandom)
	}
	if cfg.Mailbox.Size < 0 {
		return nil, fmt.Errorf("%w: mailbox.size must not be negative", ErrInvalidConfig)
	}
	if cfg.Orders.Count < 0 || cfg.Orders.MaxQuantity < 1 {
		return nil, fmt.Errorf("%w: orders.count must not be negative and orders.max_quantity must be positive", ErrInvalidConfig)
	}
	return cfg, nil
}
