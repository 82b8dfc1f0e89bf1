package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/javiercastrodev/claro-urls-duplicates/internal/matcher"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/sitemap"
)

// clearEnv unsets every variable LoadConfig reads and restores them after the
// test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envAliases {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	for _, env := range []string{"SITEMAPS_SERVER_PORT", "SITEMAPS_SITEMAP_TIMEOUT"} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Sitemap.URL != DefaultSitemapURL {
		t.Errorf("expected default sitemap, got %s", cfg.Sitemap.URL)
	}
	if !reflect.DeepEqual(cfg.Sitemap.Suffixes, matcher.DefaultSuffixes) {
		t.Errorf("expected default suffixes, got %v", cfg.Sitemap.Suffixes)
	}
	if cfg.GetSitemapTimeout() != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.GetSitemapTimeout())
	}
	if cfg.Sitemap.MaxDocuments != sitemap.DefaultMaxDocuments {
		t.Errorf("expected max documents %d, got %d", sitemap.DefaultMaxDocuments, cfg.Sitemap.MaxDocuments)
	}
	if cfg.Sitemap.UserAgent != sitemap.DefaultUserAgent {
		t.Errorf("unexpected user agent %q", cfg.Sitemap.UserAgent)
	}
	if cfg.Email.Provider != "mailersend" {
		t.Errorf("expected mailersend provider, got %q", cfg.Email.Provider)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log settings %+v", cfg.Log)
	}
	if cfg.Database.Driver != "" {
		t.Errorf("expected archive disabled, got driver %q", cfg.Database.Driver)
	}
}

func TestLoadConfig_LegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SUFFIXES", `"_old, -copy"`)
	t.Setenv("API_KEY_MAILERSEND", "mlsn.key")
	t.Setenv("FROM_EMAIL", "bot@claro.com.pe")
	t.Setenv("TO_EMAIL", "ops@claro.com.pe")
	t.Setenv("SERVER_SMTP", "smtp.mailersend.net")
	t.Setenv("PORT_SMTP", "587")
	t.Setenv("USER_SMTP", "user")
	t.Setenv("PASS_SMTP", "pass")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "reports.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Sitemap.Suffixes, []string{"_old", "-copy"}) {
		t.Errorf("unexpected suffixes %v", cfg.Sitemap.Suffixes)
	}
	if cfg.Report.CronSecret != "s3cret" {
		t.Errorf("unexpected report settings %+v", cfg.Report)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.URL != "reports.db" {
		t.Errorf("unexpected database settings %+v", cfg.Database)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Log.Level)
	}

	mc := cfg.MailerConfig()
	if mc.APIKey != "mlsn.key" || mc.From != "bot@claro.com.pe" || mc.To != "ops@claro.com.pe" {
		t.Errorf("unexpected mailer config %+v", mc)
	}
	if mc.SMTPHost != "smtp.mailersend.net" || mc.SMTPPort != 587 || mc.SMTPUser != "user" || mc.SMTPPassword != "pass" {
		t.Errorf("unexpected smtp config %+v", mc)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "FROM_EMAIL=dotenv@claro.com.pe\nTO_EMAIL='team@claro.com.pe'\n")
	t.Setenv("FROM_EMAIL", "env@claro.com.pe")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Email.From != "env@claro.com.pe" {
		t.Errorf("real environment should win over .env, got %s", cfg.Email.From)
	}
	if cfg.Email.To != "team@claro.com.pe" {
		t.Errorf("expected .env value, got %s", cfg.Email.To)
	}
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
server:
  port: 7000
sitemap:
  url: https://www.claro.com.co/sitemap.xml
  suffixes: [_a, "", _b]
  timeout: 5s
  maxdocuments: 10
  requestspersecond: 2.5
email:
  provider: smtp
`)
	t.Setenv("PORT", "7100")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 7100 {
		t.Errorf("environment should override the file, got port %d", cfg.Server.Port)
	}
	if cfg.Sitemap.URL != "https://www.claro.com.co/sitemap.xml" {
		t.Errorf("unexpected sitemap %s", cfg.Sitemap.URL)
	}
	if !reflect.DeepEqual(cfg.Sitemap.Suffixes, []string{"_a", "_b"}) {
		t.Errorf("unexpected suffixes %v", cfg.Sitemap.Suffixes)
	}

	fc := cfg.FetcherConfig()
	if fc.Timeout != 5*time.Second || fc.UserAgent != sitemap.DefaultUserAgent {
		t.Errorf("unexpected fetcher config %+v", fc)
	}
	cc := cfg.CollectorConfig()
	if cc.MaxDocuments != 10 || cc.RequestsPerSecond != 2.5 {
		t.Errorf("unexpected collector config %+v", cc)
	}
	if cfg.MailerConfig().Provider != "smtp" {
		t.Errorf("unexpected provider %q", cfg.MailerConfig().Provider)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "server: [unterminated")

	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestGetSitemapTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
	}{
		{name: "valid", timeout: "10s", want: 10 * time.Second},
		{name: "empty", want: sitemap.DefaultTimeout},
		{name: "garbage", timeout: "soon", want: sitemap.DefaultTimeout},
		{name: "negative", timeout: "-1s", want: sitemap.DefaultTimeout},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var cfg Config
			cfg.Sitemap.Timeout = test.timeout

			if got := cfg.GetSitemapTimeout(); got != test.want {
				t.Errorf("GetSitemapTimeout() = %v, want %v", got, test.want)
			}
		})
	}
}
