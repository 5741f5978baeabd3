package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Session struct {
		UserID string `yaml:"user_id"`
	} `yaml:"session"`
	Remote struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"remote"`
	Intake struct {
		Capacity  int `yaml:"capacity"`
		BatchSize int `yaml:"batch_size"`
	} `yaml:"intake"`
	Sync struct {
		Cron    string  `yaml:"cron"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
		Workers int     `yaml:"workers"`
	} `yaml:"sync"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Addr returns host:port for the ops HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns
// their values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "ops HTTP listen address")
	dbPtr := flag.String("db", "./.chatsync", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg
// and reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("CHATSYNC_ADDRESS"); v != "" {
		envUsed = true
		cfg.Server.Address = v
	}
	if v := os.Getenv("CHATSYNC_PORT"); v != "" {
		if pi, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Server.Port = pi
		}
	}
	if v := os.Getenv("CHATSYNC_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CHATSYNC_USER_ID"); v != "" {
		envUsed = true
		cfg.Session.UserID = v
	}
	if v := os.Getenv("CHATSYNC_REMOTE_URL"); v != "" {
		envUsed = true
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("CHATSYNC_INTAKE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Intake.Capacity = n
		}
	}
	if v := os.Getenv("CHATSYNC_INTAKE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Intake.BatchSize = n
		}
	}
	if v := os.Getenv("CHATSYNC_SYNC_CRON"); v != "" {
		envUsed = true
		cfg.Sync.Cron = v
	}
	if v := os.Getenv("CHATSYNC_SYNC_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Sync.RPS = f
		}
	}
	if v := os.Getenv("CHATSYNC_SYNC_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Sync.Burst = n
		}
	}
	if v := os.Getenv("CHATSYNC_SYNC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Sync.Workers = n
		}
	}
	if v := os.Getenv("CHATSYNC_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	return envUsed
}

// LoadEffective loads config from the given path and applies environment
// overrides. A missing file yields defaults plus env.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and `CHATSYNC_CONFIG` when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CHATSYNC_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
