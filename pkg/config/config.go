package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
	"github.com/f-lab-edu/stock-simulator/pkg/redis"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // .env file is optional

	if err := env.Parse(cfg); err != nil {
		return err
	}

	return nil
}

// Config holds the configuration for the matching worker.
type Config struct {
	KafkaConfig    `envPrefix:"KAFKA_"`
	Postgres       postgresql.Config `envPrefix:"PG_"`
	Redis          redis.Config      `envPrefix:"REDIS_"`
	MatchingConfig `envPrefix:"MATCHING_"`
}

// KafkaConfig holds the configuration for the Kafka consumers and producers.
type KafkaConfig struct {
	Brokers []string `env:"BROKER,required"`

	OrderCreatedTopic  string `env:"ORDER_CREATED_TOPIC" envDefault:"order.created"`
	MatchRequestTopic  string `env:"MATCH_REQUEST_TOPIC" envDefault:"match.request"`
	TradeSettledTopic  string `env:"TRADE_SETTLED_TOPIC" envDefault:"trade.settled"`
	DeadLetterTopic    string `env:"DEAD_LETTER_TOPIC" envDefault:"order.deadletter"`
	OrderCreatedGroup  string `env:"ORDER_CREATED_GROUP" envDefault:"order-prepare-group"`
	MatchRequestGroup  string `env:"MATCH_REQUEST_GROUP" envDefault:"trade-match-group"`
	TradeSettledGroup  string `env:"TRADE_SETTLED_GROUP" envDefault:"book-sync-group"`
}

// MatchingConfig holds the tuning knobs for the matching cycle.
type MatchingConfig struct {
	// LockWaitTimeout bounds how long a trigger waits for the instrument lock
	// before abandoning the cycle.
	LockWaitTimeout time.Duration `env:"LOCK_WAIT_TIMEOUT" envDefault:"3s"`
	// LockLease is the auto-expiring hold duration of the instrument lock.
	LockLease time.Duration `env:"LOCK_LEASE" envDefault:"10s"`
	// MaxIterations bounds the number of pairs processed per trigger.
	MaxIterations int `env:"MAX_ITERATIONS" envDefault:"100"`
	// RetryBackoff is the delay before retrying a transiently failed pair.
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"200ms"`
	// PricePolicy selects the execution price rule: "sell" or "earlier".
	PricePolicy string `env:"PRICE_POLICY" envDefault:"sell"`
}
