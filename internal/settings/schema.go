package settings

import "strings"

// Persisted keys of the fhem settings section.
const (
	KeyAddress     = "address"
	KeyDeviceName  = "device_name"
	KeyVerifyTLS   = "verify_tls"
	KeyOnValue     = "set_on"
	KeyOffValue    = "set_off"
	KeyReadingName = "reading"
)

// Configuration is the typed settings bag consumed by the FHEM client.
// It is replaced wholesale on reload and never mutated in place.
type Configuration struct {
	Address     string
	DeviceName  string
	VerifyTLS   bool
	OnValue     string
	OffValue    string
	ReadingName string
}

// Enabled reports whether a server address is configured. An empty address
// disables every FHEM operation without being an error.
func (c Configuration) Enabled() bool {
	return strings.TrimSpace(c.Address) != ""
}

// Kind is the value type of a settings option.
type Kind int

const (
	KindString Kind = iota
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Option describes one recognized setting.
type Option struct {
	Key     string
	Aliases []string
	Kind    Kind
	Default any
	apply   func(*Configuration, any)
}

// Names returns the key followed by its aliases.
func (o Option) Names() []string {
	return append([]string{o.Key}, o.Aliases...)
}

// Schema is the fixed table of recognized options.
var Schema = []Option{
	{
		Key:     KeyAddress,
		Kind:    KindString,
		Default: "",
		apply:   func(c *Configuration, v any) { c.Address = v.(string) },
	},
	{
		Key:     KeyDeviceName,
		Aliases: []string{"deviceName"},
		Kind:    KindString,
		Default: "",
		apply:   func(c *Configuration, v any) { c.DeviceName = v.(string) },
	},
	{
		Key:     KeyVerifyTLS,
		Kind:    KindBool,
		Default: false,
		apply:   func(c *Configuration, v any) { c.VerifyTLS = v.(bool) },
	},
	{
		Key:     KeyOnValue,
		Kind:    KindString,
		Default: "on",
		apply:   func(c *Configuration, v any) { c.OnValue = v.(string) },
	},
	{
		Key:     KeyOffValue,
		Kind:    KindString,
		Default: "off",
		apply:   func(c *Configuration, v any) { c.OffValue = v.(string) },
	},
	{
		Key:     KeyReadingName,
		Kind:    KindString,
		Default: "state",
		apply:   func(c *Configuration, v any) { c.ReadingName = v.(string) },
	},
}

// Lookup finds the option for a key or alias.
func Lookup(key string) (Option, bool) {
	for _, opt := range Schema {
		for _, name := range opt.Names() {
			if name == key {
				return opt, true
			}
		}
	}
	return Option{}, false
}

// Defaults returns the configuration with every option at its default.
func Defaults() Configuration {
	return Load(nil)
}

// Load builds a Configuration from src, reading each option with the
// accessor for its kind and falling back to the option default.
// A nil source yields the defaults.
func Load(src Source) Configuration {
	var cfg Configuration
	for _, opt := range Schema {
		opt.apply(&cfg, read(src, opt))
	}
	return cfg
}

func read(src Source, opt Option) any {
	if src == nil {
		return opt.Default
	}
	for _, name := range opt.Names() {
		switch opt.Kind {
		case KindBool:
			if v, ok := src.Bool(name); ok {
				return v
			}
		default:
			if v, ok := src.String(name); ok {
				return v
			}
		}
	}
	return opt.Default
}
