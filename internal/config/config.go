package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type TelegramConfig struct {
	ApiKey  string `yaml:"api_key" env:"BOT_TOKEN" env-default:""`
	OwnerId int64  `yaml:"owner_id" env:"OWNER_ID" env-default:"0"`
}

type MongoConfig struct {
	Enabled    bool   `yaml:"enabled" env-default:"true"`
	Host       string `yaml:"host" env-default:"localhost"`
	Port       string `yaml:"port" env-default:"27017"`
	User       string `yaml:"user" env-default:""`
	Password   string `yaml:"password" env-default:""`
	Database   string `yaml:"database" env-default:"sanoqchi"`
	TimeoutSec int    `yaml:"timeout_sec" env-default:"5"`
}

type ChallengeConfig struct {
	SweepIntervalSec int   `yaml:"sweep_interval_sec" env-default:"60"`
	LeaderboardSize  int64 `yaml:"leaderboard_size" env-default:"10"`
}

type ApiConfig struct {
	Token string `yaml:"token" env:"API_TOKEN" env-default:""`
}

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Api       ApiConfig       `yaml:"api"`
	Listen    Listen          `yaml:"listen"`
	Env       string          `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
