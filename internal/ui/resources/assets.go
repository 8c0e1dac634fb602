// Package resources serves the dashboard's static assets: the stylesheet and
// the map script.
package resources

// StaticPrefix is the URL prefix static assets are served under.
const StaticPrefix = "/static/"

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return StaticPrefix + path
}
