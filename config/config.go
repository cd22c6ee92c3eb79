package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Engine EngineConfig `mapstructure:"engine"`
}

type ServerConfig struct {
	GatewayAddress string `mapstructure:"gateway_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	PlayerEventsTopic string        `mapstructure:"player_events_topic"`
	StateUpdatesTopic string        `mapstructure:"state_updates_topic"`
	GroupID           string        `mapstructure:"group_id"`
	BatchSize         int           `mapstructure:"batch_size"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Workers           int           `mapstructure:"workers"`
	CommitRetries     int           `mapstructure:"commit_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
}

type RedisConfig struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	RoomTTLSeconds int    `mapstructure:"room_ttl_seconds"`
}

// RoomTTL returns the configured room TTL as a duration.
func (r RedisConfig) RoomTTL() time.Duration {
	return time.Duration(r.RoomTTLSeconds) * time.Second
}

type EngineConfig struct {
	EnableDiffUpdates bool `mapstructure:"enable_diff_updates"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.gateway_address", ":8080")
	viper.SetDefault("server.rpc_address", ":9090")
	viper.SetDefault("server.monitor_address", ":2112")
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.player_events_topic", "player-events")
	viper.SetDefault("kafka.state_updates_topic", "game-state-updates")
	viper.SetDefault("kafka.group_id", "game-engine")
	viper.SetDefault("kafka.batch_size", 100)
	viper.SetDefault("kafka.poll_interval", time.Second)
	viper.SetDefault("kafka.workers", 5)
	viper.SetDefault("kafka.commit_retries", 3)
	viper.SetDefault("kafka.retry_backoff", time.Second)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.room_ttl_seconds", 300)
	viper.SetDefault("engine.enable_diff_updates", false)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		// Defaults are complete, so a missing file is not an error.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}
