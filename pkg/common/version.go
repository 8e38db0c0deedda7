package common

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version returns the embedded release version.
func Version() string {
	return strings.TrimSpace(version)
}

// ServerName is sent as the Server header and stamped on generated workbooks.
func ServerName() string {
	return "dcimpact/" + Version()
}
