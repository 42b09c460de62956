// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

// Version is the release version
var Version = "0.3.0"

const (
	// Product is the product name
	Product = "hspbridge"

	// Manufacturer is the publisher
	Manufacturer = "hspbridge contributors"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
