package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Tenant      TenantConfig      `mapstructure:"tenant"`
	Resolver    ResolverConfig    `mapstructure:"resolver"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Objects     ObjectsConfig     `mapstructure:"objects"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TenantConfig struct {
	Attribute string `mapstructure:"attribute"`
}

type ResolverConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RegistryConfig struct {
	ParameterName string `mapstructure:"parameter_name"`
	Region        string `mapstructure:"region"`
	ResourceOwner string `mapstructure:"resource_owner"`
}

type CredentialsConfig struct {
	SessionName string        `mapstructure:"session_name"`
	Duration    time.Duration `mapstructure:"duration"`
}

// ObjectsConfig switches object reads to an S3-compatible endpoint when
// Endpoint is set.
type ObjectsConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Listen    string `mapstructure:"listen"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("tenant.attribute", "tenant-code")
	v.SetDefault("resolver.enabled", true)
	v.SetDefault("registry.parameter_name", "/shared/internal-storage")
	v.SetDefault("registry.region", "us-east-1")
	v.SetDefault("registry.resource_owner", "OTHER-ACCOUNTS")
	v.SetDefault("credentials.session_name", "sqsdispatch")
	v.SetDefault("credentials.duration", "15m")
	v.SetDefault("objects.endpoint", "")
	v.SetDefault("objects.use_ssl", true)
	v.SetDefault("objects.access_key_id", "")
	v.SetDefault("objects.secret_access_key", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "sqsdispatch")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "")
	v.SetDefault("metrics.listen", "")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sqsdispatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sqsdispatch")
	}

	// Environment variables override (SQSDISPATCH_LOGGING_LEVEL, etc.)
	v.SetEnvPrefix("SQSDISPATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
