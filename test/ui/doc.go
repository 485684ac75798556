//go:build e2e

// Package ui holds the browser scenarios for the Insider site.
//
// The scenarios are isolated from the standard test suite via build tags.
// They need Chrome (discovered locally or downloaded on first use) or
// Firefox with geckodriver on PATH.
//
// Running against the live site:
//
//	go test -tags=e2e ./test/ui -run TestInsider -browser=chrome
//
// Running against the bundled fixture site only:
//
//	go test -tags=e2e ./test/ui -run TestFixture -browser=firefox
//
// The browser may also be chosen with INSIDER_E2E_BROWSER or the
// [browser] name key of the file passed with -config. On failure a
// screenshot and the page source are written to the screenshot directory
// (error_screenshots by default).
package ui
