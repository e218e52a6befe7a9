package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// PathEnv names an optional YAML file read before the environment
const PathEnv = "CONVERTER_CONFIG_PATH"

// Config of a verification run
type Config struct {
	// PageURL base url of the converter page, e.g. https://www.xe.com/currencyconverter.
	// pageUrl is read too, as found in existing .env files.
	PageURL string `yaml:"page_url" env:"PAGE_URL,pageUrl" env-required:"true"`

	Rates    Rates   `yaml:"rates"`
	Browser  Browser `yaml:"browser"`
	Suite    Suite   `yaml:"suite"`
	Server   Server  `yaml:"server"`
	LogLevel string  `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// Rates the rate provider endpoint and credentials. apiUrl is an alias of RATES_URL.
type Rates struct {
	URL      string        `yaml:"url" env:"RATES_URL,apiUrl" env-required:"true"`
	Token    string        `yaml:"token" env:"RATES_TOKEN"`
	Username string        `yaml:"username" env:"RATES_USERNAME"`
	Password string        `yaml:"password" env:"RATES_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" env:"RATES_TIMEOUT" env-default:"10s"`
}

// Browser Chrome settings
type Browser struct {
	Headless        bool          `yaml:"headless" env:"HEADLESS" env-default:"true"`
	ChromeBinary    string        `yaml:"chrome_binary" env:"CHROME_BINARY"`
	ActionTimeout   time.Duration `yaml:"action_timeout" env:"ACTION_TIMEOUT" env-default:"15s"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" env:"NAVIGATE_TIMEOUT" env-default:"30s"`
}

// Suite scenario runner settings
type Suite struct {
	Parallel int `yaml:"parallel" env:"PARALLEL" env-default:"1"`
}

// Server HTTP transport settings
type Server struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR" env-default:":8080"`
}

// Load reads .env when present, then the optional YAML file named by CONVERTER_CONFIG_PATH,
// then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv(PathEnv); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config file %v: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load that exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks values cleanenv cannot
func (c *Config) Validate() error {
	if c.Rates.Username == "" && c.Rates.Password != "" {
		return errors.New("RATES_PASSWORD set without RATES_USERNAME")
	}
	if c.Suite.Parallel < 1 {
		return fmt.Errorf("PARALLEL must be at least 1, got %d", c.Suite.Parallel)
	}
	if c.Browser.ActionTimeout <= 0 || c.Browser.NavigateTimeout <= 0 || c.Rates.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}
