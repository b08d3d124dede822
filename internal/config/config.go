// internal/config/config.go
//
// Process configuration.
//
// Sources, lowest precedence first:
//   1. Built-in defaults.
//   2. An optional YAML file named by CONFIG_FILE.
//   3. Environment variables (a .env file in the working directory is loaded
//      into the environment first).
//
// Environment variable names are the upper-cased keys with '.' replaced by
// '_' (board.size → BOARD_SIZE), plus the short aliases in envAliases.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port         string      `mapstructure:"port"`
	LogLevel     string      `mapstructure:"log_level"`
	LogPretty    bool        `mapstructure:"log_pretty"`
	ClientOrigin string      `mapstructure:"client_origin"`
	JWTSecret    string      `mapstructure:"jwt_secret"`
	Board        BoardConfig `mapstructure:"board"`
	Rooms        RoomsConfig `mapstructure:"rooms"`
	Store        StoreConfig `mapstructure:"store"`
	NATS         NATSConfig  `mapstructure:"nats"`
	Words        WordsConfig `mapstructure:"words"`
	HTTP         HTTPConfig  `mapstructure:"http"`
}

type BoardConfig struct {
	Size               int `mapstructure:"size"`
	MaxLettersPerTurn  int `mapstructure:"max_letters_per_turn"`
	RoundsPerIncrement int `mapstructure:"rounds_per_increment"`
	GrowthStep         int `mapstructure:"growth_step"`
}

type RoomsConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	ValidationTimeout time.Duration `mapstructure:"validation_timeout"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
}

type StoreConfig struct {
	Backend       string `mapstructure:"backend"` // memory | redis | sqlite
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"` // empty disables the relay
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type WordsConfig struct {
	DictionaryFile string `mapstructure:"dictionary_file"`
	AnswersFile    string `mapstructure:"answers_file"`
	AllowedFile    string `mapstructure:"allowed_file"`
	LettersFile    string `mapstructure:"letters_file"`
	DailySalt      string `mapstructure:"daily_salt"`
}

type HTTPConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// envAliases maps keys to the short variable names used in deployments.
var envAliases = map[string]string{
	"store.backend":         "STORE_BACKEND",
	"store.redis_addr":      "REDIS_ADDR",
	"store.redis_password":  "REDIS_PASSWORD",
	"store.redis_db":        "REDIS_DB",
	"store.sqlite_path":     "SQLITE_PATH",
	"nats.url":              "NATS_URL",
	"words.dictionary_file": "DICTIONARY_FILE",
	"words.answers_file":    "WORDS_ANSWERS_FILE",
	"words.allowed_file":    "WORDS_ALLOWED_FILE",
	"words.letters_file":    "LETTERS_FILE",
	"words.daily_salt":      "DAILY_SALT",
	"rooms.ttl":             "ROOM_TTL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5175")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("client_origin", "http://localhost:5173")
	v.SetDefault("jwt_secret", "dev_secret_change_me")

	v.SetDefault("board.size", 15)
	v.SetDefault("board.max_letters_per_turn", 7)
	v.SetDefault("board.rounds_per_increment", 3)
	v.SetDefault("board.growth_step", 1)

	v.SetDefault("rooms.ttl", 2*time.Hour)
	v.SetDefault("rooms.validation_timeout", 3*time.Second)
	v.SetDefault("rooms.sweep_interval", 5*time.Minute)

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.sqlite_path", "wordgames.db")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)

	v.SetDefault("words.dictionary_file", "")
	v.SetDefault("words.answers_file", "")
	v.SetDefault("words.allowed_file", "")
	v.SetDefault("words.letters_file", "")
	v.SetDefault("words.daily_salt", "wordgames-daily")

	v.SetDefault("http.request_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
}

// Load reads .env, the optional CONFIG_FILE and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Getenv("CONFIG_FILE"))
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Board.Size < 5 {
		return fmt.Errorf("config: board size %d too small", c.Board.Size)
	}
	if c.Board.MaxLettersPerTurn <= 0 {
		return fmt.Errorf("config: max letters per turn must be positive")
	}
	if c.Rooms.TTL <= 0 || c.Rooms.ValidationTimeout <= 0 {
		return fmt.Errorf("config: room ttl and validation timeout must be positive")
	}
	if c.Rooms.SweepInterval <= 0 {
		return fmt.Errorf("config: room sweep interval must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }
