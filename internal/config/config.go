// Package config loads the SmartBot server and CLI configuration from an
// optional YAML file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rauan228/HackNU2/internal/llm"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the environment,
// e.g. SMARTBOT_SERVER_PORT for server.port.
const EnvPrefix = "SMARTBOT"

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Report   ReportConfig   `mapstructure:"report"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	PingInterval    time.Duration `mapstructure:"ping_interval" validate:"min=0"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LLMConfig selects and configures the generation backend.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"omitempty,oneof=gemini vertex openai"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Project     string        `mapstructure:"project"`
	Location    string        `mapstructure:"location"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=0,max=10"`
	Models      ModelsConfig  `mapstructure:"models"`
}

// ModelsConfig overrides the per-tier model names.
type ModelsConfig struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours"`
	BcryptCost         int    `mapstructure:"bcrypt_cost"`
	PasswordPepper     string `mapstructure:"password_pepper"`
}

// TelegramConfig enables completion notifications to a Telegram chat.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// Enabled reports whether both the bot token and the chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// ReportConfig configures employer views.
type ReportConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"min=1,max=64"`
}

// RealtimeConfig configures the event hub.
type RealtimeConfig struct {
	Buffer int `mapstructure:"buffer" validate:"min=1"`
}

// legacyEnv maps keys to unprefixed variable names that are also honoured.
var legacyEnv = map[string][]string{
	"server.port":               {"PORT"},
	"database.url":              {"DATABASE_URL"},
	"llm.provider":              {"LLM_PROVIDER"},
	"llm.api_key":               {"GEMINI_API_KEY", "OPENAI_API_KEY"},
	"llm.base_url":              {"OPENAI_BASE_URL"},
	"llm.project":               {"GOOGLE_CLOUD_PROJECT"},
	"llm.location":              {"GOOGLE_CLOUD_LOCATION"},
	"auth.jwt_secret":           {"JWT_SECRET"},
	"auth.jwt_expiration_hours": {"JWT_EXPIRATION_HOURS"},
	"auth.bcrypt_cost":          {"BCRYPT_COST"},
	"auth.password_pepper":      {"PASSWORD_PEPPER"},
	"telegram.token":            {"TELEGRAM_BOT_TOKEN"},
	"telegram.chat_id":          {"TELEGRAM_CHAT_ID"},
	"server.allowed_origins":    {"ALLOWED_ORIGINS"},
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.ping_interval", 30*time.Second)
	v.SetDefault("database.url", "")
	v.SetDefault("llm.provider", string(llm.ProviderGemini))
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.project", "")
	v.SetDefault("llm.location", "")
	v.SetDefault("llm.timeout", llm.DefaultTimeout)
	v.SetDefault("llm.max_attempts", llm.DefaultMaxAttempts)
	v.SetDefault("llm.models.lite", "")
	v.SetDefault("llm.models.standard", "")
	v.SetDefault("llm.models.advanced", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiration_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.password_pepper", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("report.concurrency", 4)
	v.SetDefault("realtime.buffer", 16)
}

// BindEnv binds every key to SMARTBOT_<KEY> and its legacy variable names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return fmt.Errorf("binding %s environment variables: %w", key, err)
		}
	}
	return nil
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	return LoadWith(v, path)
}

// LoadWith reads the configuration into v, which may already carry bound flags.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config error: invalid %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Generation returns the llm configuration with provider defaults filled in.
func (c *Config) Generation() (*llm.Config, error) {
	cfg := &llm.Config{
		Provider:    llm.Provider(strings.ToLower(strings.TrimSpace(c.LLM.Provider))),
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Project:     c.LLM.Project,
		Location:    c.LLM.Location,
		Timeout:     c.LLM.Timeout,
		MaxAttempts: c.LLM.MaxAttempts,
		Models: map[llm.ModelTier]string{
			llm.TierLite:     c.LLM.Models.Lite,
			llm.TierStandard: c.LLM.Models.Standard,
			llm.TierAdvanced: c.LLM.Models.Advanced,
		},
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}
