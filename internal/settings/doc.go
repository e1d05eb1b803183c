// Package settings holds the typed configuration of the FHEM power adapter.
//
// Settings are read from a raw key/value Source through a fixed Schema of
// (key, kind, default) options, so every field is loaded with the accessor for
// its type and falls back to its default when absent. The persisted keys match
// the PSU Control FHEM plugin:
//
//	address      string  ""       FHEMWEB base URL; empty disables the adapter
//	device_name  string  ""       FHEM device (alias: deviceName)
//	verify_tls   bool    false    verify the server certificate
//	set_on       string  "on"     set argument and reading value for on
//	set_off      string  "off"    set argument and reading value for off
//	reading      string  "state"  reading that carries the power state
//
// # Sources
//
// The YAML settings file (File) provides the fhem section as a MapSource.
// PSUFHEM_* environment variables (EnvSource) override it:
//
//	cfg, file, err := settings.Resolve("")
//
// # Publication
//
// A Holder publishes the current Configuration behind an atomic pointer.
// Reloads replace the whole value, so an in-flight command never sees a
// half-updated configuration.
package settings
