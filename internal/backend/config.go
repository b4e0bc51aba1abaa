package backend

import (
	"fmt"

	"jaffle/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type:          backendType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDir,
	}
	cfg.Sheets.SpreadsheetID = appConfig.GoogleSpreadsheetID
	cfg.Sheets.MonthlySheet = appConfig.MonthlySheetName
	cfg.Sheets.ProductSheet = appConfig.ProductSheetName
	cfg.Sheets.CredentialsFile = appConfig.GoogleCredentialsFile
	cfg.Sheets.CredentialsJSON = appConfig.GoogleCredentialsJSON
	if backendType == PostgresBackend {
		cfg.PostgresDSN = appConfig.Database.DSN()
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres connection string is required for postgres backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory may be empty; the bundled sample is used then.
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := []BackendType{PostgresBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
