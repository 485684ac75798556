package common

import (
	"github.com/ternarybob/banner"
)

// AppName is the name shown in the banner and the runner summary
const AppName = "Insider E2E"

// PrintBanner displays the application banner
func PrintBanner(version string) {
	banner.Print(AppName, version)
}
