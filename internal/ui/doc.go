// Package ui renders psufhem's terminal output.
//
// Printer writes lipgloss-styled header, success and error boxes for the
// one-shot commands (on, off, state). Dashboard is a Bubble Tea model for
// the interactive dashboard:
//
//	o  switch on
//	f  switch off
//	r  refresh the state
//	q  quit
//
// A spinner is shown while a request to FHEM is in flight; the state is
// re-read after every command and periodically.
package ui
