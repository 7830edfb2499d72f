// Package urls holds the documentation URLs printed by the CLI, so they can be
// updated in one place.
//
// Usage:
//
//	import "github.com/muurk/easyremote/internal/urls"
//
//	fmt.Printf("Protocol reference: %s\n", urls.ExternalControlAPI)
package urls
