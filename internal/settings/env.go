package settings

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PSUFHEM"

// EnvSource holds settings overrides from the environment, e.g.
// PSUFHEM_ADDRESS or PSUFHEM_VERIFY_TLS. Unset variables stay nil.
type EnvSource struct {
	Address     *string `envconfig:"ADDRESS"`
	DeviceName  *string `envconfig:"DEVICE_NAME"`
	VerifyTLS   *string `envconfig:"VERIFY_TLS"`
	OnValue     *string `envconfig:"SET_ON"`
	OffValue    *string `envconfig:"SET_OFF"`
	ReadingName *string `envconfig:"READING"`
}

// LoadEnv reads the overrides from the process environment.
func LoadEnv() (*EnvSource, error) {
	var env EnvSource
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to parse environment settings: %w", err)
	}
	return &env, nil
}

func (e *EnvSource) field(key string) *string {
	if e == nil {
		return nil
	}
	switch key {
	case KeyAddress:
		return e.Address
	case KeyDeviceName, "deviceName":
		return e.DeviceName
	case KeyVerifyTLS:
		return e.VerifyTLS
	case KeyOnValue:
		return e.OnValue
	case KeyOffValue:
		return e.OffValue
	case KeyReadingName:
		return e.ReadingName
	default:
		return nil
	}
}

// String implements Source. Empty variables count as unset.
func (e *EnvSource) String(key string) (string, bool) {
	if v := e.field(key); v != nil && *v != "" {
		return *v, true
	}
	return "", false
}

// Bool implements Source.
func (e *EnvSource) Bool(key string) (bool, bool) {
	if v := e.field(key); v != nil && *v != "" {
		return ParseBool(*v)
	}
	return false, false
}
