package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"jaffle/internal/core"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
)

// DatabaseConfig holds the Postgres connection parameters.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" validate:"required"`
	Port     int    `env:"DB_PORT" validate:"min=1,max=65535"`
	User     string `env:"DB_USER" validate:"required"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" validate:"required"`
	SSLMode  string `env:"DB_SSLMODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Source records where the values came from: "secrets:<path>" or "env".
	Source string `env:"-"`
}

// DSN renders a postgres:// URL with credentials escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	return u.String()
}

type Config struct {
	// HTTP Server
	Port string `env:"PORT"`

	// Backend selection
	DataBackend string `env:"DATA_BACKEND" validate:"oneof=postgres sqlite sheets memory"`

	// Postgres, checked only for the postgres backend
	Database DatabaseConfig `env:"-" validate:"-"`

	// SQLite and memory
	SQLiteDBPath string `env:"SQLITE_DB_PATH" validate:"required_if=DataBackend sqlite"`
	DataDir      string `env:"DATA_DIR"`

	// Google Sheets
	GoogleSpreadsheetID   string `env:"GOOGLE_SPREADSHEET_ID" validate:"required_if=DataBackend sheets"`
	MonthlySheetName      string `env:"MONTHLY_SHEET_NAME" validate:"required_if=DataBackend sheets"`
	ProductSheetName      string `env:"PRODUCT_SHEET_NAME" validate:"required_if=DataBackend sheets"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
	GoogleCredentialsJSON string `env:"GOOGLE_CREDENTIALS_JSON"`

	// AMQP, optional
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" validate:"required_with=AMQPURL"`
	AMQPQueue    string `env:"AMQP_QUEUE" validate:"required_with=AMQPURL"`

	// Snapshots and queries
	SnapshotDir  string        `env:"SNAPSHOT_DIR" validate:"required"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" validate:"min=1s,max=5m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=text json"`

	parseProblems []string
}

// Sources says where Load looks for values. Fields left empty fall back to
// the process environment only.
type Sources struct {
	// SecretsFiles are TOML secret stores; the first one that exists
	// supplies every DB_* value.
	SecretsFiles []string
	// EnvFile is a dotenv file read without modifying the process env.
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// DefaultSources honours SECRETS_FILE and otherwise checks the
// .streamlit/secrets.toml and secrets.toml locations, then .env.
func DefaultSources() Sources {
	secrets := []string{".streamlit/secrets.toml", "secrets.toml"}
	if v := os.Getenv("SECRETS_FILE"); v != "" {
		secrets = []string{v}
	}
	return Sources{SecretsFiles: secrets, EnvFile: ".env", LookupEnv: os.LookupEnv}
}

func Load() (*Config, error) {
	return LoadFrom(DefaultSources())
}

// LoadFrom builds a Config with the precedence secret store, then process
// env, then env file, then defaults. Values that fail to parse are reported
// by Validate.
func LoadFrom(src Sources) (*Config, error) {
	env, err := newEnvReader(src)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        env.get("PORT", "8080"),
		DataBackend: env.get("DATA_BACKEND", BackendPostgres),

		SQLiteDBPath: env.get("SQLITE_DB_PATH", "./data/jaffle.db"),
		DataDir:      env.get("DATA_DIR", "./data"),

		GoogleSpreadsheetID:   env.get("GOOGLE_SPREADSHEET_ID", ""),
		MonthlySheetName:      env.get("MONTHLY_SHEET_NAME", "monthly_metrics"),
		ProductSheetName:      env.get("PRODUCT_SHEET_NAME", "product_metrics"),
		GoogleCredentialsFile: env.get("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: env.get("GOOGLE_CREDENTIALS_JSON", ""),

		AMQPURL:      env.get("AMQP_URL", ""),
		AMQPExchange: env.get("AMQP_EXCHANGE", "jaffle"),
		AMQPQueue:    env.get("AMQP_QUEUE", "dashboard_snapshots"),

		SnapshotDir:  env.get("SNAPSHOT_DIR", "./snapshots"),
		QueryTimeout: env.getDuration("QUERY_TIMEOUT", 15*time.Second),

		LogLevel:  strings.ToLower(env.get("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(env.get("LOG_FORMAT", "text")),
	}

	db, found, err := readSecrets(src.SecretsFiles)
	if err != nil {
		return nil, err
	}
	if !found {
		db = DatabaseConfig{
			Host:     env.get("DB_HOST", ""),
			Port:     env.getInt("DB_PORT", 5432),
			User:     env.get("DB_USER", ""),
			Password: env.get("DB_PASSWORD", ""),
			Name:     env.get("DB_NAME", ""),
			SSLMode:  env.get("DB_SSLMODE", "require"),
			Source:   "env",
		}
	}
	cfg.Database = db
	cfg.parseProblems = env.problems

	return cfg, nil
}

// readSecrets loads DB_* keys from the first secrets file that exists.
func readSecrets(paths []string) (DatabaseConfig, bool, error) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return DatabaseConfig{}, false, &core.ConfigurationError{
				Problems: []string{fmt.Sprintf("cannot access secrets file '%s': %v", path, err)},
			}
		}

		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		v.SetDefault("DB_PORT", 5432)
		v.SetDefault("DB_SSLMODE", "require")
		if err := v.ReadInConfig(); err != nil {
			return DatabaseConfig{}, false, &core.ConfigurationError{
				Problems: []string{fmt.Sprintf("invalid secrets file '%s': %v", path, err)},
			}
		}

		return DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Source:   "secrets:" + path,
		}, true, nil
	}
	return DatabaseConfig{}, false, nil
}

// Validate checks the whole configuration and returns a
// *core.ConfigurationError listing every problem found.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.parseProblems...)

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	v := newValidator()
	problems = append(problems, describe(v.Struct(c))...)

	if c.DataBackend == BackendPostgres {
		problems = append(problems, describe(v.Struct(c.Database))...)
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	if c.DataBackend == BackendSheets {
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			problems = append(problems, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if len(problems) > 0 {
		return &core.ConfigurationError{Problems: problems}
	}
	return nil
}

// AMQPEnabled reports whether snapshot publishing is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("env")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// describe turns validator output into operator-facing messages keyed by
// environment variable names.
func describe(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Field()
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required", key))
		case "required_if":
			backend := strings.Fields(fe.Param())
			out = append(out, fmt.Sprintf("%s is required when DATA_BACKEND=%s", key, backend[len(backend)-1]))
		case "required_with":
			out = append(out, fmt.Sprintf("%s is required when AMQP_URL is set", key))
		case "oneof":
			out = append(out, fmt.Sprintf("invalid %s '%v': must be one of [%s]", key, fe.Value(), fe.Param()))
		case "min":
			out = append(out, fmt.Sprintf("invalid %s %v: must be at least %s", key, fe.Value(), fe.Param()))
		case "max":
			out = append(out, fmt.Sprintf("invalid %s %v: must be at most %s", key, fe.Value(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("invalid %s: failed %s", key, fe.Tag()))
		}
	}
	return out
}

// envReader resolves keys against the process env first, then the env file.
type envReader struct {
	lookup   func(string) (string, bool)
	file     map[string]string
	problems []string
}

func newEnvReader(src Sources) (*envReader, error) {
	r := &envReader{lookup: src.LookupEnv, file: map[string]string{}}
	if r.lookup == nil {
		r.lookup = os.LookupEnv
	}
	if src.EnvFile == "" {
		return r, nil
	}
	values, err := godotenv.Read(src.EnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, &core.ConfigurationError{
			Problems: []string{fmt.Sprintf("invalid env file '%s': %v", src.EnvFile, err)},
		}
	}
	r.file = values
	return r, nil
}

func (r *envReader) get(key, defaultValue string) string {
	if value, ok := r.lookup(key); ok && value != "" {
		return value
	}
	if value := r.file[key]; value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) getInt(key string, defaultValue int) int {
	value := r.get(key, "")
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("invalid %s '%s': must be a number", key, value))
		return defaultValue
	}
	return i
}

func (r *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := r.get(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("invalid %s '%s': must be a duration such as 15s", key, value))
		return defaultValue
	}
	return d
}
