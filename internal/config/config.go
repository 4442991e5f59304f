package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"socksweep/internal/logger"
)

var log = logger.New("config")

type Config struct {
	Scanner      ScannerConfig      `mapstructure:"scanner" validate:"required"`
	Reachability ReachabilityConfig `mapstructure:"reachability"`
	Sources      SourcesConfig      `mapstructure:"sources" validate:"required"`
	Geo          GeoConfig          `mapstructure:"geo"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Output       OutputConfig       `mapstructure:"output" validate:"required"`
}

// ScannerConfig controls the validation pipeline itself.
type ScannerConfig struct {
	Concurrency   int           `mapstructure:"concurrency" validate:"required,min=1,max=2000"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout" validate:"required,min=1s,max=5m"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" validate:"required,min=1s,max=1m"`
	ProbeMode     string        `mapstructure:"probe_mode" validate:"required,oneof=handshake-only full-connect"`
	ConnectTarget string        `mapstructure:"connect_target" validate:"omitempty,hostname_port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
}

// ReachabilityConfig lists the endpoints a valid proxy must be able to reach.
type ReachabilityConfig struct {
	Targets   []string      `mapstructure:"targets" validate:"omitempty,dive,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required,min=1s,max=2m"`
	UserAgent string        `mapstructure:"user_agent" validate:"required,min=10"`
}

// SourcesConfig controls candidate acquisition.
type SourcesConfig struct {
	Mode      string        `mapstructure:"mode" validate:"required,oneof=free quake both"`
	FreeLists []string      `mapstructure:"free_lists" validate:"omitempty,dive,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required,min=5s,max=2m"`
	UserAgent string        `mapstructure:"user_agent" validate:"required,min=10"`
	Provinces []string      `mapstructure:"provinces"`
	Operators []string      `mapstructure:"operators"`
	QuakeURL  string        `mapstructure:"quake_url" validate:"omitempty,url"`
	QuakeSize int           `mapstructure:"quake_size" validate:"required,min=1,max=500"`
}

// GeoConfig controls the province/carrier lookup collaborator.
type GeoConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	CityDBPath   string        `mapstructure:"city_db_path"`
	ASNDBPath    string        `mapstructure:"asn_db_path"`
	HTTPFallback bool          `mapstructure:"http_fallback"`
	APITimeout   time.Duration `mapstructure:"api_timeout" validate:"required,min=1s,max=30s"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"required,min=1m,max=168h"`
}

// DatabaseConfig controls the optional sqlite scan history.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,min=1"`
}

// OutputConfig controls where and how reports are written.
type OutputConfig struct {
	Directory string   `mapstructure:"directory" validate:"required,min=1"`
	Formats   []string `mapstructure:"formats" validate:"required,min=1,dive,oneof=json csv txt"`
}

// setDefaults configures default values for viper
func setDefaults() {
	// Scanner defaults
	viper.SetDefault("scanner.concurrency", 20)
	viper.SetDefault("scanner.task_timeout", "30s")
	viper.SetDefault("scanner.probe_timeout", "5s")
	viper.SetDefault("scanner.probe_mode", "handshake-only")
	viper.SetDefault("scanner.connect_target", "")
	viper.SetDefault("scanner.username", "")
	viper.SetDefault("scanner.password", "")

	// Reachability defaults
	viper.SetDefault("reachability.targets", []string{})
	viper.SetDefault("reachability.timeout", "10s")
	viper.SetDefault("reachability.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	// Sources defaults
	viper.SetDefault("sources.mode", "free")
	viper.SetDefault("sources.free_lists", []string{
		"https://raw.githubusercontent.com/TheSpeedX/SOCKS-List/master/socks5.txt",
		"https://raw.githubusercontent.com/hookzof/socks5_list/master/proxy.txt",
		"https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/socks5.txt",
		"https://raw.githubusercontent.com/proxifly/free-proxy-list/main/proxies/socks5.txt",
		"https://www.proxy-list.download/api/v1/get?type=socks5",
		"https://api.proxyscrape.com/v2/?request=getproxies&protocol=socks5&timeout=10000&country=all",
	})
	viper.SetDefault("sources.timeout", "15s")
	viper.SetDefault("sources.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	viper.SetDefault("sources.provinces", []string{})
	viper.SetDefault("sources.operators", []string{})
	viper.SetDefault("sources.quake_url", "https://quake.360.net/api/v3/search/quake_service")
	viper.SetDefault("sources.quake_size", 100)

	// Geo defaults
	viper.SetDefault("geo.enabled", true)
	viper.SetDefault("geo.city_db_path", "")
	viper.SetDefault("geo.asn_db_path", "")
	viper.SetDefault("geo.http_fallback", true)
	viper.SetDefault("geo.api_timeout", "5s")
	viper.SetDefault("geo.cache_ttl", "12h")

	// Database defaults
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "./data/socksweep.db")

	// Output defaults
	viper.SetDefault("output.directory", "./results")
	viper.SetDefault("output.formats", []string{"json", "txt"})
}

// LoadConfig loads configuration from file, environment and defaults, then
// validates it. A validation failure here is fatal: the scan never starts on
// a bad configuration.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/socksweep")

	viper.SetEnvPrefix("SOCKSWEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Info("no config file found, using defaults and environment variables")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := registerCustomValidators(validate); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := checkCrossFields(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// registerCustomValidators adds custom validation rules
func registerCustomValidators(validate *validator.Validate) error {
	// hostname:port, checked structurally; DNS resolution is not attempted
	return validate.RegisterValidation("hostname_port", func(fl validator.FieldLevel) bool {
		addr := fl.Field().String()
		if addr == "" {
			return false
		}
		return strings.Contains(addr, ":")
	})
}

// checkCrossFields enforces relations a single-field tag cannot express.
func checkCrossFields(config *Config) error {
	if config.Scanner.ProbeMode == "full-connect" && config.Scanner.ConnectTarget == "" {
		return fmt.Errorf("scanner.connect_target is required in full-connect probe mode")
	}
	if config.Scanner.ProbeTimeout > config.Scanner.TaskTimeout {
		return fmt.Errorf("scanner.probe_timeout (%v) exceeds scanner.task_timeout (%v)",
			config.Scanner.ProbeTimeout, config.Scanner.TaskTimeout)
	}
	return nil
}

// QuakeAPIKey reads the search API credential from the environment. The
// engine itself never touches it; only the Quake source client does.
func QuakeAPIKey() string {
	return os.Getenv("QUAKE_API_KEY")
}

// SaveConfigTemplate generates a sample configuration file
func SaveConfigTemplate(path string) error {
	setDefaults()
	viper.SetConfigType("yaml")

	if err := viper.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}

	return nil
}

// PrintConfig displays the current configuration (for debugging)
func PrintConfig(config *Config) {
	log.Info("configuration loaded",
		"concurrency", config.Scanner.Concurrency,
		"task_timeout", config.Scanner.TaskTimeout,
		"probe_mode", config.Scanner.ProbeMode,
		"targets", len(config.Reachability.Targets),
		"sources_mode", config.Sources.Mode,
		"geo", config.Geo.Enabled,
		"database", config.Database.Enabled,
		"output", config.Output.Directory,
	)
	if QuakeAPIKey() != "" {
		log.Info("quake api key", "status", "set", "length", len(QuakeAPIKey()))
	} else if config.Sources.Mode != "free" {
		log.Warn("quake api key", "status", "not set")
	}
}
