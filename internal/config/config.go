// Package config loads credentials from .env and settings from config.yaml.
package config

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
)

const (
	RelayFiles = "relay_files"
	LogActions = "log_actions"
)

var (
	ErrMissingCredentials = errors.New("APP_ID and API_HASH must be set")
	ErrUnknownToggle      = errors.New("unknown setting")
)

var toggles = []string{RelayFiles, LogActions}

// DefaultFedBots are queried by fstat when no fed_bots are configured.
var DefaultFedBots = fanout.StaticPeers{
	{ID: 609517172, Name: "Rose"},
	{ID: 1376954911, Name: "AstrakoBot"},
	{ID: 885745757, Name: "Sophie"},
}

// Telegram holds the account credentials read from the environment.
type Telegram struct {
	AppID   int
	APIHash string
	Phone   string
	OwnerID int64
	// LogChannel receives action logs and proofs. Zero disables them.
	LogChannel  int64
	LogBotToken string
}

func (t Telegram) Validate() error {
	if t.AppID == 0 || t.APIHash == "" {
		return ErrMissingCredentials
	}
	return nil
}

type Config struct {
	Telegram Telegram

	mu   sync.RWMutex
	v    *viper.Viper
	dir  string
	path string
}

type botEntry struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Load reads dir/.env and dir/config.yaml. Both files are optional; process
// environment wins over .env.
func Load(dir string) (*Config, error) {
	env, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read .env")
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}

	var tgc Telegram
	if s := lookup("APP_ID"); s != "" {
		if tgc.AppID, err = strconv.Atoi(s); err != nil {
			return nil, errors.Wrap(err, "parse APP_ID")
		}
	}
	tgc.APIHash = lookup("API_HASH")
	tgc.Phone = lookup("PHONE")
	tgc.LogBotToken = lookup("LOG_BOT_TOKEN")
	if tgc.OwnerID, err = parseID(lookup("OWNER_ID")); err != nil {
		return nil, errors.Wrap(err, "parse OWNER_ID")
	}
	if tgc.LogChannel, err = parseID(lookup("LOG_CHANNEL")); err != nil {
		return nil, errors.Wrap(err, "parse LOG_CHANNEL")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config.yaml")
		}
	}

	return &Config{
		Telegram: tgc,
		v:        v,
		dir:      dir,
		path:     filepath.Join(dir, "config.yaml"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prefix", ".")
	v.SetDefault("session_path", "userbot.session")
	v.SetDefault("database_path", "userbot.db")
	v.SetDefault("log_file", "bot.log")
	v.SetDefault("lookup_bot", "xiaomigeeksbot")
	v.SetDefault("fed_admin_bot", "MissRose_bot")
	v.SetDefault("timeouts.fstat", 20*time.Second)
	v.SetDefault("timeouts.fban", 8*time.Second)
	v.SetDefault("timeouts.lookup", 20*time.Second)
	v.SetDefault("timeouts.gban_bot", 5*time.Second)
	v.SetDefault("timeouts.fed_admin", 10*time.Second)
	v.SetDefault(RelayFiles, true)
	v.SetDefault(LogActions, true)
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *Config) str(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

// file resolves a relative path setting against the config directory.
func (c *Config) file(key string) string {
	p := c.str(key)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *Config) Prefix() string       { return c.str("prefix") }
func (c *Config) SessionPath() string  { return c.file("session_path") }
func (c *Config) DatabasePath() string { return c.file("database_path") }
func (c *Config) LogFile() string      { return c.file("log_file") }
func (c *Config) LookupBot() string    { return c.str("lookup_bot") }
func (c *Config) FedAdminBot() string  { return c.str("fed_admin_bot") }

// Timeout returns timeouts.<name>, or zero if it is not set.
func (c *Config) Timeout(name string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetDuration("timeouts." + name)
}

// FedBots are the bots asked by fstat, in configured order.
func (c *Config) FedBots() (fanout.StaticPeers, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.v.IsSet("fed_bots") {
		return append(fanout.StaticPeers(nil), DefaultFedBots...), nil
	}
	var entries []botEntry
	if err := c.v.UnmarshalKey("fed_bots", &entries); err != nil {
		return nil, errors.Wrap(err, "decode fed_bots")
	}
	bots := make(fanout.StaticPeers, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = strconv.FormatInt(e.ID, 10)
		}
		bots = append(bots, fanout.PeerEndpoint{ID: e.ID, Name: name})
	}
	return bots, nil
}

// Peers makes the configured fed bots a fanout.PeerSource.
func (c *Config) Peers(context.Context) ([]fanout.PeerEndpoint, error) {
	return c.FedBots()
}

func (c *Config) Flag(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool(key)
}

// Flags returns every runtime toggle by name.
func (c *Config) Flags() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]bool, len(toggles))
	for _, k := range toggles {
		out[k] = c.v.GetBool(k)
	}
	return out
}

// FlagNames lists toggle names in a stable order.
func FlagNames() []string {
	names := append([]string(nil), toggles...)
	sort.Strings(names)
	return names
}

// SetFlag changes a runtime toggle and writes config.yaml.
func (c *Config) SetFlag(key string, on bool) error {
	if !isToggle(key) {
		return errors.Wrap(ErrUnknownToggle, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.v.Set(key, on)
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func isToggle(key string) bool {
	for _, k := range toggles {
		if k == key {
			return true
		}
	}
	return false
}
