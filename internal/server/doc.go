// Package server implements the HTTP control API.
//
// # Endpoints
//
//	GET  /api/psu              current state {"on","enabled","cached"}
//	POST /api/psu/on           switch on, 202 {"dispatched":true}
//	POST /api/psu/off          switch off
//	POST /api/settings/reload  re-read the settings file and environment
//	GET  /api/events           WebSocket stream of state changes
//	GET  /metrics              Prometheus metrics
//	GET  /healthz              liveness
//
// GET /api/psu answers from a short-lived cache so that dashboards polling
// the API do not turn into a jsonlist2 per request. Power commands and
// reloads invalidate it.
//
// Every response carries an X-Request-ID header, taken from the request
// when present.
//
// # Signals
//
// SIGINT and SIGTERM shut the server down gracefully. SIGHUP reloads the
// settings.
package server
