// Package config loads the service configuration from YAML files with
// environment variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port        int    `json:"port" yaml:"port"`
		FrontendURL string `json:"frontendUrl" yaml:"frontendUrl"`
		Timeouts    struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *PostgresConfig `json:"postgres" yaml:"postgres"`

	GoogleCalendar *GoogleCalendarConfig `json:"googleCalendar" yaml:"googleCalendar"`

	Scheduling SchedulingConfig `json:"scheduling" yaml:"scheduling"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// PostgresConfig defines the connection and pool settings for the store.
type PostgresConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	User            string        `json:"user" yaml:"user"`
	Password        string        `json:"password" yaml:"password"`
	DBName          string        `json:"dbName" yaml:"dbName"`
	SSLMode         string        `json:"sslMode" yaml:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// GoogleCalendarConfig holds the OAuth client settings for the external
// calendar integration.
type GoogleCalendarConfig struct {
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
	RedirectURI  string `json:"redirectUri" yaml:"redirectUri"`
}

// SchedulingConfig tunes the scheduling engine.
type SchedulingConfig struct {
	// SlotDuration is the fixed length of candidate slots.
	SlotDuration time.Duration `json:"slotDuration" yaml:"slotDuration"`

	// RefreshSkew renews the calendar credential when it expires within
	// this window.
	RefreshSkew time.Duration `json:"refreshSkew" yaml:"refreshSkew"`

	// AdapterTimeout bounds every external calendar call.
	AdapterTimeout time.Duration `json:"adapterTimeout" yaml:"adapterTimeout"`

	// LinkStateTTL bounds how long a calendar link authorization may stay pending.
	LinkStateTTL time.Duration `json:"linkStateTtl" yaml:"linkStateTtl"`

	// DefaultWorkStart and DefaultWorkEnd seed the working hours of newly
	// created providers, "HH:mm".
	DefaultWorkStart string `json:"defaultWorkStart" yaml:"defaultWorkStart"`
	DefaultWorkEnd   string `json:"defaultWorkEnd" yaml:"defaultWorkEnd"`
}

// Defaults applied when the YAML omits scheduling settings.
const (
	defaultSlotDuration   = 30 * time.Minute
	defaultRefreshSkew    = 5 * time.Minute
	defaultAdapterTimeout = 5 * time.Second
	defaultLinkStateTTL   = 10 * time.Minute
	defaultWorkStart      = "09:00"
	defaultWorkEnd        = "17:00"
)

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	// Environment variables override YAML values. POSTGRES_HOST -> postgres.host;
	// camelCase keys are matched case-insensitively during unmarshal.
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return strings.ReplaceAll(strings.ToLower(k), "_", "."), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}
	cfg.applySchedulingDefaults()

	return cfg, nil
}

func (c *Config) applySchedulingDefaults() {
	if c.Scheduling.SlotDuration <= 0 {
		c.Scheduling.SlotDuration = defaultSlotDuration
	}
	if c.Scheduling.RefreshSkew <= 0 {
		c.Scheduling.RefreshSkew = defaultRefreshSkew
	}
	if c.Scheduling.AdapterTimeout <= 0 {
		c.Scheduling.AdapterTimeout = defaultAdapterTimeout
	}
	if c.Scheduling.LinkStateTTL <= 0 {
		c.Scheduling.LinkStateTTL = defaultLinkStateTTL
	}
	if strings.TrimSpace(c.Scheduling.DefaultWorkStart) == "" {
		c.Scheduling.DefaultWorkStart = defaultWorkStart
	}
	if strings.TrimSpace(c.Scheduling.DefaultWorkEnd) == "" {
		c.Scheduling.DefaultWorkEnd = defaultWorkEnd
	}
}
