package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrInvalidDriver        = errors.New("db.driver must be memory or postgres")
	ErrInvalidAgentProvider = errors.New("agent.provider must be catalog, sidecar or openai")
	ErrSidecarURLRequired   = errors.New("agent.sidecar_url is required for the sidecar provider")
	ErrOpenAIKeyRequired    = errors.New("agent.openai.api_key is required for the openai provider")
	ErrTLSFilesRequired     = errors.New("tls.cert_file and tls.key_file are required when tls is enabled")
	ErrInvalidPort          = errors.New("server.port must be between 1 and 65535")
)

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`
	Server      struct {
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Redis struct {
		Enable   bool          `mapstructure:"enable"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Scope struct {
		DefaultUser   string `mapstructure:"default_user"`
		RequireClient bool   `mapstructure:"require_client"`
	} `mapstructure:"scope"`
	Agent struct {
		Provider   string        `mapstructure:"provider"`
		SidecarURL string        `mapstructure:"sidecar_url"`
		Timeout    time.Duration `mapstructure:"timeout"`
		OpenAI     struct {
			APIKey  string `mapstructure:"api_key"`
			Model   string `mapstructure:"model"`
			BaseURL string `mapstructure:"base_url"`
		} `mapstructure:"openai"`
	} `mapstructure:"agent"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Engine struct {
		Costs map[string]float64 `mapstructure:"costs"`
	} `mapstructure:"engine"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "DEV")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "orchestrator")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("scope.default_user", "")
	v.SetDefault("agent.provider", "catalog")
	v.SetDefault("agent.sidecar_url", "")
	v.SetDefault("agent.timeout", 30*time.Second)
	v.SetDefault("agent.openai.api_key", "")
	v.SetDefault("agent.openai.model", "gpt-4o-mini")
	v.SetDefault("agent.openai.base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{"localhost"})
}

// LoadConfig loads the configuration from an optional .env file, the config
// file and the environment, using the global viper instance so that cobra
// flag bindings apply.
func LoadConfig(envFile string) (*Config, error) {
	return Load(viper.GetViper(), envFile)
}

// Load reads configuration into v. A missing config.yaml is not an error.
func Load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("ORCHESTRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.Environment = strings.ToUpper(strings.TrimSpace(config.Environment))
	config.DB.Driver = strings.ToLower(strings.TrimSpace(config.DB.Driver))
	config.Agent.Provider = strings.ToLower(strings.TrimSpace(config.Agent.Provider))
	// Client scope is required everywhere but DEV unless configured.
	if !v.IsSet("scope.require_client") {
		config.Scope.RequireClient = !config.IsDev()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	switch c.DB.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.DB.Driver)
	}
	switch c.Agent.Provider {
	case "catalog":
	case "sidecar":
		if c.Agent.SidecarURL == "" {
			return ErrSidecarURLRequired
		}
	case "openai":
		if c.Agent.OpenAI.APIKey == "" {
			return ErrOpenAIKeyRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAgentProvider, c.Agent.Provider)
	}
	if c.TLS.Enable && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return ErrTLSFilesRequired
	}
	return nil
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool {
	return c.Environment == "DEV"
}

// DSN renders the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
