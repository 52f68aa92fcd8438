// Package build provides version metadata set at build time via
// -ldflags, following lone-faerie-mqttop's internal/build package.
package build

import "runtime/debug"

var (
	pkg     string
	version string
)

// Version returns the build-time version string, falling back to the
// module version recorded in the binary's build info.
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// Package returns the module path the binary was built from.
func Package() string {
	if pkg != "" {
		return pkg
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Path
	}
	return "github.com/iotgw/iotgwd"
}
