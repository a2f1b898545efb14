package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither config file nor environment set a value.
const (
	DefaultPageSize      = 20
	DefaultMaxPageSize   = 100
	DefaultPreviewMaxLen = 160
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Pagination struct {
		// DefaultPageSize applies when a request omits page_size.
		DefaultPageSize int `yaml:"default_page_size"`
		// MaxPageSize is a hard cap; larger requests are clamped, not
		// rejected.
		MaxPageSize int `yaml:"max_page_size"`
	} `yaml:"pagination"`
	Messaging struct {
		// PreviewMaxLen bounds the denormalized last-message preview
		// stored on conversations and summary rows (runes).
		PreviewMaxLen int `yaml:"preview_max_len"`
		// SecondaryWriteTimeoutMS bounds each projection write that
		// follows the primary log append. Zero disables the bound.
		SecondaryWriteTimeoutMS int `yaml:"secondary_write_timeout_ms"`
	} `yaml:"messaging"`
	Security struct {
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Sweeper struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"sweeper"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// Addr returns host:port for the HTTP server.
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

// Load reads and parses a YAML config file.
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

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto cfg and reports
// whether any environment variable was used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("MESSENGERDB_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("MESSENGERDB_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("MESSENGERDB_DEFAULT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Pagination.DefaultPageSize = n
		}
	}
	if v := os.Getenv("MESSENGERDB_MAX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Pagination.MaxPageSize = n
		}
	}
	if v := os.Getenv("MESSENGERDB_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("MESSENGERDB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("MESSENGERDB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("MESSENGERDB_SWEEPER_CRON"); v != "" {
		envUsed = true
		cfg.Sweeper.Enabled = true
		cfg.Sweeper.Cron = strings.TrimSpace(v)
	}
	if v := os.Getenv("MESSENGERDB_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = strings.TrimSpace(v)
	}
	return envUsed
}

// EffectiveConfig is the merged result of file + env + defaults used by
// the running server.
type EffectiveConfig struct {
	Config  *Config
	Addr    string
	DBPath  string
	EnvUsed bool
}

// LoadEffective loads the config file (if present), applies env
// overrides and fills defaults. A missing config file is not an error;
// env and defaults still apply.
func LoadEffective(path string) (EffectiveConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		if !strings.Contains(err.Error(), "config file not found") {
			return EffectiveConfig{}, err
		}
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	applyDefaults(cfg)

	eff := EffectiveConfig{
		Config:  cfg,
		Addr:    cfg.Addr(),
		DBPath:  cfg.Storage.DBPath,
		EnvUsed: envUsed,
	}
	if eff.DBPath == "" {
		eff.DBPath = "./.database"
	}
	return eff, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Pagination.DefaultPageSize <= 0 {
		cfg.Pagination.DefaultPageSize = DefaultPageSize
	}
	if cfg.Pagination.MaxPageSize <= 0 {
		cfg.Pagination.MaxPageSize = DefaultMaxPageSize
	}
	if cfg.Pagination.DefaultPageSize > cfg.Pagination.MaxPageSize {
		cfg.Pagination.DefaultPageSize = cfg.Pagination.MaxPageSize
	}
	if cfg.Messaging.PreviewMaxLen <= 0 {
		cfg.Messaging.PreviewMaxLen = DefaultPreviewMaxLen
	}
	if cfg.Sweeper.Cron == "" {
		cfg.Sweeper.Cron = "0 2 * * *"
	}
}

// RuntimeConfig holds derived runtime values that other packages query
// while serving requests (populated during startup after merging).
type RuntimeConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	PreviewMaxLen   int
	// SecondaryWriteTimeoutMS bounds each projection write after the
	// primary append; zero means unbounded.
	SecondaryWriteTimeoutMS int
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// PageSizeDefaults returns the effective (default, max) page sizes.
func PageSizeDefaults() (int, int) {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return DefaultPageSize, DefaultMaxPageSize
	}
	return runtimeCfg.DefaultPageSize, runtimeCfg.MaxPageSize
}

// PreviewMaxLen returns the effective preview length bound in runes.
func PreviewMaxLen() int {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil || runtimeCfg.PreviewMaxLen <= 0 {
		return DefaultPreviewMaxLen
	}
	return runtimeCfg.PreviewMaxLen
}

// SecondaryWriteTimeoutMS returns the per-projection write bound in
// milliseconds, zero when unbounded.
func SecondaryWriteTimeoutMS() int {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return 0
	}
	return runtimeCfg.SecondaryWriteTimeoutMS
}
