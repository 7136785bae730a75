// Package model contains the palantir entities exchanged with the server
// and the transient UI state layered on top of them.
package model

import "fmt"

// Normalized status codes.
const (
	StatusSuccess = 0
	StatusWarning = 1
	StatusError   = 2
)

// Normalize folds a raw return code into StatusSuccess, StatusWarning or StatusError.
func Normalize(retcode int) int {
	switch retcode {
	case StatusSuccess, StatusWarning:
		return retcode
	default:
		return StatusError
	}
}

// StatusClass returns the presentation class for a return code:
// "" for success, "warning" for 1 and "error" for anything else.
func StatusClass(retcode int) string {
	switch Normalize(retcode) {
	case StatusSuccess:
		return ""
	case StatusWarning:
		return "warning"
	default:
		return "error"
	}
}

// StatusLabel renders a return code as SUCCESS, WARNING or ERROR(<code>).
func StatusLabel(retcode int) string {
	switch Normalize(retcode) {
	case StatusSuccess:
		return "SUCCESS"
	case StatusWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("ERROR(%d)", retcode)
	}
}
