// Package utils provides logger construction and version lookup for treedump.
package utils

import "runtime/debug"

const unknownVersion = "unknown"

// applicationVersion is set at link time with -ldflags "-X".
var applicationVersion string

// GetApplicationVersion reports the link-time version, then the module version
// recorded in the build info, then "unknown".
func GetApplicationVersion() string {
	if applicationVersion != "" {
		return applicationVersion
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	return unknownVersion
}
