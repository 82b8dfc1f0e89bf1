package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/mailer"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/matcher"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/sitemap"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const DefaultSitemapURL = "https://www.claro.com.pe/sitemap.xml"

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Driver string
		URL    string
	}
	Sitemap struct {
		URL               string
		Suffixes          []string `mapstructure:"-"`
		Timeout           string
		MaxDocuments      int
		UserAgent         string
		MaxBodySize       int
		RequestsPerSecond float64
	}
	Email struct {
		Provider     string
		APIKey       string
		From         string
		To           string
		SMTPHost     string
		SMTPPort     int
		SMTPUser     string
		SMTPPassword string
	}
	Report struct {
		CronSecret string
	}
	Log struct {
		Level  string
		Format string
		Dir    string
	}
}

// envAliases maps config keys to the environment variable names used by the
// existing deployments.
var envAliases = map[string]string{
	"server.port":        "PORT",
	"sitemap.url":        "SITEMAP_URL",
	"sitemap.suffixes":   "SUFFIXES",
	"email.provider":     "EMAIL_PROVIDER",
	"email.apikey":       "API_KEY_MAILERSEND",
	"email.from":         "FROM_EMAIL",
	"email.to":           "TO_EMAIL",
	"email.smtphost":     "SERVER_SMTP",
	"email.smtpport":     "PORT_SMTP",
	"email.smtpuser":     "USER_SMTP",
	"email.smtppassword": "PASS_SMTP",
	"report.cronsecret":  "CRON_SECRET",
	"database.driver":    "DATABASE_DRIVER",
	"database.url":       "DATABASE_URL",
	"log.level":          "LOG_LEVEL",
	"log.format":         "LOG_FORMAT",
	"log.dir":            "LOG_DIR",
}

// LoadConfig reads .env and an optional config.yaml from paths (default "."
// and "./config"), then applies environment overrides. Variables already set
// in the environment win over .env entries.
func LoadConfig(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}

	for _, dir := range paths {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range paths {
		v.AddConfigPath(dir)
	}

	// Default values
	v.SetDefault("server.port", 8000)
	v.SetDefault("sitemap.url", DefaultSitemapURL)
	v.SetDefault("sitemap.suffixes", matcher.DefaultSuffixes)
	v.SetDefault("sitemap.timeout", sitemap.DefaultTimeout.String())
	v.SetDefault("sitemap.maxdocuments", sitemap.DefaultMaxDocuments)
	v.SetDefault("sitemap.useragent", sitemap.DefaultUserAgent)
	v.SetDefault("sitemap.maxbodysize", sitemap.DefaultMaxBodySize)
	v.SetDefault("sitemap.requestspersecond", 0)
	v.SetDefault("email.provider", mailer.ProviderMailerSend)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("SITEMAPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Sitemap.Suffixes = parseSuffixes(v.Get("sitemap.suffixes"))
	if len(config.Sitemap.Suffixes) == 0 {
		config.Sitemap.Suffixes = matcher.DefaultSuffixes
	}

	return &config, nil
}

// parseSuffixes accepts the CSV form used in the environment as well as a
// YAML list.
func parseSuffixes(raw interface{}) []string {
	if s, ok := raw.(string); ok {
		return matcher.ParseSuffixes(s)
	}

	var out []string
	for _, s := range cast.ToStringSlice(raw) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) GetSitemapTimeout() time.Duration {
	duration, err := time.ParseDuration(c.Sitemap.Timeout)
	if err != nil || duration <= 0 {
		return sitemap.DefaultTimeout
	}
	return duration
}

func (c *Config) FetcherConfig() sitemap.FetcherConfig {
	return sitemap.FetcherConfig{
		UserAgent:   c.Sitemap.UserAgent,
		Timeout:     c.GetSitemapTimeout(),
		MaxBodySize: c.Sitemap.MaxBodySize,
	}
}

func (c *Config) CollectorConfig() sitemap.CollectorConfig {
	return sitemap.CollectorConfig{
		MaxDocuments:      c.Sitemap.MaxDocuments,
		RequestsPerSecond: c.Sitemap.RequestsPerSecond,
	}
}

func (c *Config) MailerConfig() mailer.Config {
	return mailer.Config{
		Provider:     c.Email.Provider,
		APIKey:       c.Email.APIKey,
		From:         c.Email.From,
		To:           c.Email.To,
		SMTPHost:     c.Email.SMTPHost,
		SMTPPort:     c.Email.SMTPPort,
		SMTPUser:     c.Email.SMTPUser,
		SMTPPassword: c.Email.SMTPPassword,
	}
}
