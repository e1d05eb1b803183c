package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is a raw settings collection with typed accessors. The second
// return value is false when the key is absent or cannot be coerced.
type Source interface {
	String(key string) (string, bool)
	Bool(key string) (bool, bool)
}

// MapSource reads settings from a decoded key/value document.
type MapSource map[string]any

// String implements Source. Scalars are formatted; nil counts as absent.
func (m MapSource) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// Bool implements Source. Strings are coerced with ParseBool.
func (m MapSource) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case int:
		return t != 0, true
	case string:
		return ParseBool(t)
	default:
		return false, false
	}
}

// ParseBool accepts the spellings commonly found in hand-written settings.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "y":
		return true, true
	case "no", "off", "n":
		return false, true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}

// Layered consults sources in order; the first one holding a key wins.
type Layered []Source

// String implements Source.
func (l Layered) String(key string) (string, bool) {
	for _, src := range l {
		if src == nil {
			continue
		}
		if v, ok := src.String(key); ok {
			return v, true
		}
	}
	return "", false
}

// Bool implements Source.
func (l Layered) Bool(key string) (bool, bool) {
	for _, src := range l {
		if src == nil {
			continue
		}
		if v, ok := src.Bool(key); ok {
			return v, true
		}
	}
	return false, false
}
