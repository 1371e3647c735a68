package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Mail      MailConfig      `yaml:"mail" mapstructure:"mail"`
	Proxy     ProxyConfig     `yaml:"proxy" mapstructure:"proxy"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeneratorConfig holds the remote generation endpoints.
type GeneratorConfig struct {
	CertificateURL string `yaml:"certificate_url" mapstructure:"certificate_url"`
	CredentialURL  string `yaml:"credential_url" mapstructure:"credential_url"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MailConfig configures email delivery through the relay endpoint.
type MailConfig struct {
	RelayURL           string `yaml:"relay_url" mapstructure:"relay_url"`
	Subject            string `yaml:"subject" mapstructure:"subject"`
	CredentialsSubject string `yaml:"credentials_subject" mapstructure:"credentials_subject"`
	Template           string `yaml:"template" mapstructure:"template"`
	TokenPath          string `yaml:"token_path" mapstructure:"token_path"`
}

// ProxyConfig points at the same-origin retrieval proxy used for archive
// assembly.
type ProxyConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// StoreConfig configures the local history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the relay server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultTemplate is the certificate email body when no template is
// configured. The ${name} placeholder is replaced per recipient.
const DefaultTemplate = "Dear ${name},\n\nPlease find your certificate attached.\n\nBest regards"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CERTMILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("generator.certificate_url", "https://choicecert.snipeit.ai/")
	v.SetDefault("generator.credential_url", "https://singupapi-ffnfpldenq-uc.a.run.app/")
	v.SetDefault("generator.timeout_secs", 30)
	v.SetDefault("mail.relay_url", "http://localhost:8080")
	v.SetDefault("mail.subject", "Your Certificate")
	v.SetDefault("mail.credentials_subject", "Your Swayam Credentials")
	v.SetDefault("mail.template", DefaultTemplate)
	v.SetDefault("proxy.base_url", "http://localhost:8080")
	v.SetDefault("store.path", "certmill.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
