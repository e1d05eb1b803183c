// Package logging provides structured logging for psufhem.
//
// This package wraps a global zap logger. Logging is silent unless a level is
// passed to Initialize or set through PSUFHEM_LOG_LEVEL, so the CLI prints only
// its own output by default.
//
// # Log Levels
//
//   - Debug: loaded settings, token refreshes, transitional readings
//   - Info: commands dispatched, server lifecycle
//   - Warn: empty status documents, host registration unavailable
//   - Error: non-success FHEM replies, unknown readings, transport failures
//
// # Tokens
//
// FHEM csrf tokens are never logged in full; use Token or RedactToken:
//
//	logging.Debug("csrf token refreshed", logging.Token("token", tok))
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
package logging
