// Package psu exposes the FHEM client through the power-control contract a
// host expects: TurnOn, TurnOff and a State that never fails.
//
// A host creates one Plugin, calls OnStartup once and ReloadSettings
// whenever its settings change. Watcher turns the polled state into a
// stream of change events for the HTTP API, MQTT and metrics.
package psu
