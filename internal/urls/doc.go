// Package urls provides centralized constants for the documentation URLs
// shown in error hints and command help.
//
// Usage:
//
//	import "github.com/muurk/psufhem/internal/urls"
//
//	fmt.Printf("See: %s\n", urls.CsrfToken)
package urls
