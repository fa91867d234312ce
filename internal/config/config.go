package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	WebRTC   WebRTCConfig   `yaml:"webrtc"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

type HTTPConfig struct {
	Address      string   `yaml:"address" env-default:""`
	AllowOrigins []string `yaml:"allow_origins"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

type AuthConfig struct {
	SigningSecret string `yaml:"signing_secret" env:"AUTH_SIGNING_SECRET"`
	Issuer        string `yaml:"issuer" env-default:"teamspace"`
}

type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers" env-default:""`
}

type RealtimeConfig struct {
	SnapshotUpdates  int           `yaml:"snapshot_updates" env-default:"10"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval" env-default:"30s"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.Realtime.SnapshotUpdates <= 0 {
		c.Realtime.SnapshotUpdates = 10
	}
	if c.Realtime.SnapshotInterval <= 0 {
		c.Realtime.SnapshotInterval = 30 * time.Second
	}
}
