// Package version carries the build identity and the update check
// against the version the data API advertises. A newer server build
// raises the "refresh to update" toast, mirroring how the service
// worker announces a new app shell.
package version

import goversion "github.com/hashicorp/go-version"

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UpdateAvailable reports whether server advertises a newer release
// than the running build. Unparseable versions (dev builds, empty
// meta) never prompt.
func UpdateAvailable(current, server string) bool {
	cv, err := goversion.NewVersion(current)
	if err != nil {
		return false
	}
	sv, err := goversion.NewVersion(server)
	if err != nil {
		return false
	}
	return cv.LessThan(sv)
}

// Outdated reports whether the running build is below the API's
// minimum supported app version. Running exactly the minimum is fine.
func Outdated(current, min string) bool {
	return UpdateAvailable(current, min)
}
