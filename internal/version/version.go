// ABOUTME: Version information for the pcmstream binaries
// ABOUTME: Reported by --version and in server discovery records
package version

const (
	Version      = "0.3.0"
	Product      = "pcmstream"
	Manufacturer = "Sendspin"
)
