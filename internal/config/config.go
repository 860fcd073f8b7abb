package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type App struct {
	Port             int      `yaml:"port"`
	DataDir          string   `yaml:"data_dir"`
	FilterConfigDir  string   `yaml:"filter_config_dir"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
}

type Auth struct {
	Required          bool   `yaml:"required"`
	CognitoUserPoolID string `yaml:"cognito_user_pool_id"`
	CognitoClientID   string `yaml:"cognito_client_id"`
	CognitoRegion     string `yaml:"cognito_region"`
}

type Cache struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxEntries int `yaml:"max_entries"`
}

type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
}

type Gamebrain struct {
	SearchPath      string  `yaml:"search_path"`
	HTTPMethod      string  `yaml:"http_method"`
	TimeoutSeconds  float64 `yaml:"timeout_seconds"`
	FetchLimit      int     `yaml:"fetch_limit"`
	ScoreSampleSize int     `yaml:"score_sample_size"`
}

type Reverb struct {
	BaseURL string `yaml:"base_url"`
}

type Config struct {
	App       App       `yaml:"app"`
	Auth      Auth      `yaml:"auth"`
	Cache     Cache     `yaml:"cache"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Gamebrain Gamebrain `yaml:"gamebrain"`
	Reverb    Reverb    `yaml:"reverb"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "data"
	}
	if c.App.FilterConfigDir == "" {
		c.App.FilterConfigDir = "config/filters"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 120
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 256
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 90
	}
	if c.Gamebrain.SearchPath == "" {
		c.Gamebrain.SearchPath = "/v1/games"
	}
	if c.Gamebrain.HTTPMethod == "" {
		c.Gamebrain.HTTPMethod = "GET"
	}
	if c.Gamebrain.TimeoutSeconds == 0 {
		c.Gamebrain.TimeoutSeconds = 8
	}
	if c.Gamebrain.FetchLimit == 0 {
		c.Gamebrain.FetchLimit = 100
	}
	if c.Gamebrain.ScoreSampleSize == 0 {
		c.Gamebrain.ScoreSampleSize = 500
	}
	if c.Reverb.BaseURL == "" {
		c.Reverb.BaseURL = "https://api.reverb.com/api"
	}
}
