// Package config provides Viper-based configuration loading for the PvP server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Turn timeout policies.
const (
	TimeoutPass    = "pass"
	TimeoutForfeit = "forfeit"
	TimeoutNone    = "none"
)

// GRPCConfig holds the gRPC listener settings.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// HTTPConfig holds the read-only HTTP gateway settings.
type HTTPConfig struct {
	// Enabled starts the gateway alongside the gRPC server.
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`
	// SQLitePath is the database file used by the sqlite driver. ":memory:" is allowed.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector host:port.
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// TurnLimits holds the per-battle-type turn time limit. Zero disables the clock.
type TurnLimits struct {
	Duel     time.Duration `mapstructure:"duel"`
	Ambush   time.Duration `mapstructure:"ambush"`
	Arena    time.Duration `mapstructure:"arena"`
	GuildWar time.Duration `mapstructure:"guild_war"`
}

// ByType returns the limits keyed by battle type name.
func (t TurnLimits) ByType() map[string]time.Duration {
	return map[string]time.Duration{
		"duel":      t.Duel,
		"ambush":    t.Ambush,
		"arena":     t.Arena,
		"guild_war": t.GuildWar,
	}
}

// CombatConfig holds battle engine settings.
type CombatConfig struct {
	MaxActionPoints int        `mapstructure:"max_action_points"`
	TurnLimits      TurnLimits `mapstructure:"turn_limits"`
	// TimeoutPolicy is "pass", "forfeit" or "none".
	TimeoutPolicy string `mapstructure:"timeout_policy"`
	// Seed fixes the random stream for replayable runs. Zero uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
	// LogRolls logs every random draw at debug level.
	LogRolls bool `mapstructure:"log_rolls"`
}

// ChallengeConfig holds challenge negotiation settings.
type ChallengeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MatchmakingConfig holds queue settings.
type MatchmakingConfig struct {
	RatingWindow  int           `mapstructure:"rating_window"`
	MaxWait       time.Duration `mapstructure:"max_wait"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	BattleType    string        `mapstructure:"battle_type"`
}

// RatingConfig holds Elo settings.
type RatingConfig struct {
	KFactor       float64 `mapstructure:"k_factor"`
	DefaultRating int     `mapstructure:"default_rating"`
	FleePenalty   int     `mapstructure:"flee_penalty"`
}

// ContentConfig locates data-driven content.
type ContentConfig struct {
	EffectsDir       string `mapstructure:"effects_dir"`
	ScriptsDir       string `mapstructure:"scripts_dir"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	GRPC        GRPCConfig        `mapstructure:"grpc"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Combat      CombatConfig      `mapstructure:"combat"`
	Challenge   ChallengeConfig   `mapstructure:"challenge"`
	Matchmaking MatchmakingConfig `mapstructure:"matchmaking"`
	Rating      RatingConfig      `mapstructure:"rating"`
	Content     ContentConfig     `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	collect := func(more []string) { errs = append(errs, more...) }

	collect(validatePort("grpc.port", c.GRPC.Port))
	if c.GRPC.Host == "" {
		errs = append(errs, "grpc.host must not be empty")
	}
	if c.HTTP.Enabled {
		collect(validatePort("http.port", c.HTTP.Port))
	}
	collect(validateStorage(c.Storage))
	if c.Storage.Driver == DriverPostgres {
		collect(validateDatabase(c.Database))
	}
	collect(validateLogging(c.Logging))
	collect(validateTracing(c.Tracing))
	collect(validateCombat(c.Combat))
	if c.Challenge.TTL <= 0 {
		errs = append(errs, fmt.Sprintf("challenge.ttl must be > 0, got %s", c.Challenge.TTL))
	}
	collect(validateMatchmaking(c.Matchmaking))
	collect(validateRating(c.Rating))

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePort(key string, port int) []string {
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("%s must be 1-65535, got %d", key, port)}
	}
	return nil
}

func validateStorage(s StorageConfig) []string {
	switch s.Driver {
	case DriverPostgres:
		return nil
	case DriverSQLite:
		if s.SQLitePath == "" {
			return []string{"storage.sqlite_path must not be empty for the sqlite driver"}
		}
		return nil
	}
	return []string{fmt.Sprintf("storage.driver must be one of [postgres, sqlite], got %q", s.Driver)}
}

func validateDatabase(d DatabaseConfig) []string {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	errs = append(errs, validatePort("database.port", d.Port)...)
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return errs
}

func validateLogging(l LoggingConfig) []string {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", l.Format))
	}
	return errs
}

func validateTracing(t TracingConfig) []string {
	if !t.Enabled {
		return nil
	}
	var errs []string
	if t.Endpoint == "" {
		errs = append(errs, "tracing.endpoint must not be empty when tracing is enabled")
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_ratio must be within [0, 1], got %g", t.SampleRatio))
	}
	return errs
}

func validateCombat(c CombatConfig) []string {
	var errs []string
	if c.MaxActionPoints < 3 {
		errs = append(errs, fmt.Sprintf("combat.max_action_points must be >= 3 so flee is affordable, got %d", c.MaxActionPoints))
	}
	for name, d := range c.TurnLimits.ByType() {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("combat.turn_limits.%s must not be negative", name))
		}
	}
	switch c.TimeoutPolicy {
	case TimeoutPass, TimeoutForfeit, TimeoutNone:
	default:
		errs = append(errs, fmt.Sprintf("combat.timeout_policy must be one of [pass, forfeit, none], got %q", c.TimeoutPolicy))
	}
	return errs
}

func validateMatchmaking(m MatchmakingConfig) []string {
	var errs []string
	if m.RatingWindow < 1 {
		errs = append(errs, fmt.Sprintf("matchmaking.rating_window must be >= 1, got %d", m.RatingWindow))
	}
	if m.MaxWait < 0 {
		errs = append(errs, "matchmaking.max_wait must not be negative")
	}
	if m.SweepInterval < 0 {
		errs = append(errs, "matchmaking.sweep_interval must not be negative")
	}
	switch m.BattleType {
	case "duel", "ambush", "arena", "guild_war":
	default:
		errs = append(errs, fmt.Sprintf("matchmaking.battle_type must be one of [duel, ambush, arena, guild_war], got %q", m.BattleType))
	}
	return errs
}

func validateRating(r RatingConfig) []string {
	var errs []string
	if r.KFactor <= 0 {
		errs = append(errs, fmt.Sprintf("rating.k_factor must be > 0, got %g", r.KFactor))
	}
	if r.DefaultRating < 0 {
		errs = append(errs, fmt.Sprintf("rating.default_rating must be >= 0, got %d", r.DefaultRating))
	}
	if r.FleePenalty < 0 {
		errs = append(errs, fmt.Sprintf("rating.flee_penalty must be >= 0, got %d", r.FleePenalty))
	}
	return errs
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadDefaults builds a Config from defaults and PVP_ environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func LoadDefaults() (Config, error) {
	return LoadFromViper(newViper())
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	// Environment variable overrides with PVP_ prefix
	v.SetEnvPrefix("PVP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pvp")
	v.SetDefault("database.password", "pvp")
	v.SetDefault("database.name", "pvp")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("storage.sqlite_path", "pvp.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "pvpserver")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("combat.max_action_points", 4)
	v.SetDefault("combat.turn_limits.duel", "60s")
	v.SetDefault("combat.turn_limits.ambush", "60s")
	v.SetDefault("combat.turn_limits.arena", "45s")
	v.SetDefault("combat.turn_limits.guild_war", "60s")
	v.SetDefault("combat.timeout_policy", TimeoutPass)
	v.SetDefault("combat.seed", 0)
	v.SetDefault("combat.log_rolls", false)

	v.SetDefault("challenge.ttl", "5m")

	v.SetDefault("matchmaking.rating_window", 200)
	v.SetDefault("matchmaking.max_wait", "10m")
	v.SetDefault("matchmaking.sweep_interval", "5s")
	v.SetDefault("matchmaking.battle_type", "arena")

	v.SetDefault("rating.k_factor", 32.0)
	v.SetDefault("rating.default_rating", 1000)
	v.SetDefault("rating.flee_penalty", 10)

	v.SetDefault("content.effects_dir", "content/effects")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.instruction_limit", 100000)
}
