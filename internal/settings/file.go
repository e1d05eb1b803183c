package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName     = "psufhem"
	configFile  = "config.yaml"
	fileVersion = 1

	// DefaultListen is the control API listen address.
	DefaultListen = ":8086"

	// DefaultCacheTTL is how long the control API reuses a queried state.
	DefaultCacheTTL = 2 * time.Second

	// DefaultWatchInterval is the state polling period of the watcher.
	DefaultWatchInterval = 30 * time.Second

	// DefaultTopicPrefix is the MQTT topic prefix.
	DefaultTopicPrefix = "psufhem"
)

// Mutex for file writes
var fileMutex sync.Mutex

// File is the persisted settings document.
type File struct {
	Version int            `yaml:"version"`
	FHEM    map[string]any `yaml:"fhem"`
	Server  ServerSettings `yaml:"server,omitempty"`
	MQTT    MQTTSettings   `yaml:"mqtt,omitempty"`
	Watch   WatchSettings  `yaml:"watch,omitempty"`

	path string
}

// ServerSettings configures the HTTP control API.
type ServerSettings struct {
	Listen   string        `yaml:"listen,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
	CertFile string        `yaml:"cert_file,omitempty"`
	KeyFile  string        `yaml:"key_file,omitempty"`
}

// MQTTSettings configures the optional state bridge. An empty broker
// disables it.
type MQTTSettings struct {
	Broker      string `yaml:"broker,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// WatchSettings configures state polling.
type WatchSettings struct {
	Interval time.Duration `yaml:"interval,omitempty"`
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/psufhem or $HOME/.config/psufhem
//   - macOS: $HOME/.config/psufhem
//   - Windows: %LOCALAPPDATA%\psufhem
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the default settings file path.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// NewFile returns an empty settings document that will be saved to path.
func NewFile(path string) *File {
	return &File{
		Version: fileVersion,
		FHEM:    make(map[string]any),
		path:    path,
	}
}

// LoadFile reads the settings document at path. An empty path selects the
// default location. A missing file yields an empty document.
func LoadFile(path string) (*File, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewFile(path), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	f := NewFile(path)
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if f.Version != fileVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", f.Version, fileVersion)
	}
	if f.FHEM == nil {
		f.FHEM = make(map[string]any)
	}

	return f, nil
}

// Path returns where the document is saved.
func (f *File) Path() string {
	return f.path
}

// Source exposes the fhem section as a raw settings source.
func (f *File) Source() Source {
	return MapSource(f.FHEM)
}

// Set stores a single fhem setting. The key may be an alias; it is stored
// under its canonical name. Boolean options must parse as booleans.
func (f *File) Set(key, value string) error {
	opt, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %v)", key, Keys())
	}
	if f.FHEM == nil {
		f.FHEM = make(map[string]any)
	}
	for _, alias := range opt.Aliases {
		delete(f.FHEM, alias)
	}

	switch opt.Kind {
	case KindBool:
		b, ok := ParseBool(value)
		if !ok {
			return fmt.Errorf("setting %q expects a boolean, got %q", opt.Key, value)
		}
		f.FHEM[opt.Key] = b
	default:
		f.FHEM[opt.Key] = value
	}
	return nil
}

// ServerSettings returns the server settings with defaults applied.
func (f *File) ServerSettings() ServerSettings {
	s := f.Server
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = DefaultCacheTTL
	}
	return s
}

// MQTTSettings returns the MQTT settings with defaults applied.
func (f *File) MQTTSettings() MQTTSettings {
	m := f.MQTT
	if m.TopicPrefix == "" {
		m.TopicPrefix = DefaultTopicPrefix
	}
	if m.ClientID == "" {
		m.ClientID = appName
	}
	return m
}

// WatchInterval returns the polling interval with the default applied.
func (f *File) WatchInterval() time.Duration {
	if f.Watch.Interval <= 0 {
		return DefaultWatchInterval
	}
	return f.Watch.Interval
}

// Save writes the document atomically (temp file + rename).
func (f *File) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if f.path == "" {
		return fmt.Errorf("settings file has no path")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# psufhem configuration
# The fhem section uses the same keys as the PSU Control FHEM plugin:
# address, device_name, verify_tls, set_on, set_off, reading.
#
# Location: ` + f.path + `

`)
	data = append(header, data...)

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Keys lists the canonical setting keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(Schema))
	for _, opt := range Schema {
		keys = append(keys, opt.Key)
	}
	sort.Strings(keys)
	return keys
}

// Resolve loads the settings document at path, overlays the environment and
// returns the resulting configuration along with the document.
func Resolve(path string) (Configuration, *File, error) {
	f, err := LoadFile(path)
	if err != nil {
		return Configuration{}, nil, err
	}
	env, err := LoadEnv()
	if err != nil {
		return Configuration{}, nil, err
	}
	return Load(Layered{env, f.Source()}), f, nil
}
