package common

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultConfigPath = "controller_config.toml"

	EnvConfigPath = "SDN_CONFIG"
	EnvLogLevel   = "SDN_LOG_LEVEL"
)

// ControllerConfig is decoded from controller_config.toml
type ControllerConfig struct {
	Controller CoreConfig `toml:"controller"`
	GRPC       GRPCConfig `toml:"grpc"`
	HTTP       HTTPConfig `toml:"http"`
	Etcd       EtcdConfig `toml:"etcd"`
	Log        LogConfig  `toml:"log"`
	Pool       PoolConfig `toml:"pool"`
}

type CoreConfig struct {
	TopologyFile     string  `toml:"topology_file"`
	LinkBandwidth    float64 `toml:"link_bandwidth" validate:"gt=0"`
	FlowBandwidth    float64 `toml:"flow_bandwidth" validate:"gt=0"`
	LoadBalancePaths int     `toml:"load_balance_paths" validate:"gte=1,lte=64"`
	StatusInterval   int     `toml:"status_interval" validate:"gte=0"` // seconds, 0 disables host status sampling
}

type GRPCConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr" validate:"required_if=Enabled true"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr" validate:"required_if=Enabled true"`
}

type EtcdConfig struct {
	Enabled     bool     `toml:"enabled"`
	Endpoints   []string `toml:"endpoints" validate:"required_if=Enabled true,dive,hostname_port"`
	Prefix      string   `toml:"prefix" validate:"startswith=/"`
	DialTimeout int      `toml:"dial_timeout" validate:"gte=0"` // seconds
}

type LogConfig struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Dir   string `toml:"dir"`
	File  string `toml:"file"`
}

// DefaultControllerConfig returns the configuration used when no file exists
func DefaultControllerConfig() *ControllerConfig {
	cfg := &ControllerConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ControllerConfig) applyDefaults() {
	if c.Controller.LinkBandwidth == 0 {
		c.Controller.LinkBandwidth = 100
	}
	if c.Controller.FlowBandwidth == 0 {
		c.Controller.FlowBandwidth = 10
	}
	if c.Controller.LoadBalancePaths == 0 {
		c.Controller.LoadBalancePaths = 2
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = "127.0.0.1:50051"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8080"
	}
	if c.Etcd.Prefix == "" {
		c.Etcd.Prefix = "/sdn"
	}
	if c.Etcd.DialTimeout == 0 {
		c.Etcd.DialTimeout = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "./logs"
	}
	if c.Log.File == "" {
		c.Log.File = "controller.log"
	}
	if c.Pool.MaxWorkers == 0 {
		c.Pool.MaxWorkers = DefaultPoolWorkers
	}
}

// Validate checks the struct tags
func (c *ControllerConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid controller config: %w", err)
	}
	return nil
}

// ConfigPath returns $SDN_CONFIG when set, otherwise fallback
func ConfigPath(fallback string) string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return fallback
}

// LoadEnv loads a .env file when present. A missing file is not an error.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debugf("LoadEnv: no .env loaded: %v", err)
	}
}

// LoadConfig decodes a TOML file, fills defaults, applies environment
// overrides and validates the result
func LoadConfig(path string) (*ControllerConfig, error) {
	var cfg ControllerConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	warnUndecoded(md)
	return finishConfig(&cfg)
}

// ParseConfig is LoadConfig for in-memory TOML
func ParseConfig(data string) (*ControllerConfig, error) {
	var cfg ControllerConfig
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	warnUndecoded(md)
	return finishConfig(&cfg)
}

// warnUndecoded reports keys no config field reads, e.g. settings of older releases
func warnUndecoded(md toml.MetaData) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warnf("LoadConfig: ignoring unknown keys %v", undecoded)
	}
}

func finishConfig(cfg *ControllerConfig) (*ControllerConfig, error) {
	cfg.applyDefaults()
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
