package config

import (
	"github.com/hmwcs/id-service/internal/generator"
	pkgconfig "github.com/hmwcs/id-service/pkg/config"
)

type Config struct {
	Server    ServerConfig
	Snowflake SnowflakeConfig
	NanoID    NanoIDConfig `mapstructure:"nanoid"`
	CUID2     CUID2Config  `mapstructure:"cuid2"`
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type SnowflakeConfig struct {
	DataCenterID int64 `mapstructure:"data_center_id"`
	MachineID    int64 `mapstructure:"machine_id"`
	Epoch        int64
}

type NanoIDConfig struct {
	Size     int    `mapstructure:"size"`
	Alphabet string `mapstructure:"alphabet"`
}

type CUID2Config struct {
	Length int `mapstructure:"length"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("snowflake.data_center_id", 0)
	v.SetDefault("snowflake.machine_id", 0)
	v.SetDefault("snowflake.epoch", generator.DefaultEpoch)
	v.SetDefault("nanoid.size", generator.DefaultNanoIDSize)
	v.SetDefault("nanoid.alphabet", generator.DefaultNanoIDAlphabet)
	v.SetDefault("cuid2.length", generator.DefaultCUID2Length)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("snowflake.data_center_id", "SNOWFLAKE_DATA_CENTER_ID")
	v.BindEnv("snowflake.machine_id", "SNOWFLAKE_MACHINE_ID")
	v.BindEnv("snowflake.epoch", "SNOWFLAKE_EPOCH")
	v.BindEnv("nanoid.size", "NANOID_SIZE")
	v.BindEnv("nanoid.alphabet", "NANOID_ALPHABET")
	v.BindEnv("cuid2.length", "CUID2_LENGTH")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
