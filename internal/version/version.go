// ABOUTME: Version information for the flacframe tools
// ABOUTME: Reported by -version and in the relay startup log
package version

const (
	Version      = "0.3.0"
	Product      = "flacframe"
	Manufacturer = "Resonate Protocol"
)
