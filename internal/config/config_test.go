package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: "8080"},
		Storage:   StorageConfig{Backend: BackendCSV, DataDir: "data", WorkbookPath: "data/cafe.xlsx"},
		Reporting: ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "America/Lima"},
		WhatsApp:  WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "APP_PORT"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }, "STORAGE_BACKEND"},
		{"sheets without credentials", func(c *Config) { c.Storage.Backend = BackendSheets }, "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{"sheets without id", func(c *Config) {
			c.Storage.Backend = BackendSheets
			c.Sheets.CredentialsPath = "creds.json"
		}, "GOOGLE_SHEET_DATABASE_ID"},
		{"xlsx wrong extension", func(c *Config) {
			c.Storage.Backend = BackendXLSX
			c.Storage.WorkbookPath = "data/cafe.csv"
		}, "WORKBOOK_PATH"},
		{"bad timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"whatsapp without recipient", func(c *Config) {
			c.WhatsApp.AccessToken = "token"
			c.WhatsApp.PhoneNumberID = "123"
		}, "REPORT_RECIPIENT"},
		{"whatsapp complete", func(c *Config) {
			c.WhatsApp.AccessToken = "token"
			c.WhatsApp.PhoneNumberID = "123"
			c.Reporting.Recipient = "51999999999"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", BackendXLSX)
	t.Setenv("DATA_DIR", "/tmp/ledger")
	t.Setenv("WORKBOOK_PATH", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load("does-not-exist.env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.WorkbookPath != "/tmp/ledger/cafe.xlsx" {
		t.Fatalf("WorkbookPath: got %s", cfg.Storage.WorkbookPath)
	}
	if cfg.WhatsApp.Enabled() || cfg.MongoDB.Enabled() {
		t.Fatal("optional integrations should be disabled by default")
	}
}
