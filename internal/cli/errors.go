package cli

import "errors"

// ErrUsage is returned when a command gets the wrong arguments.
var ErrUsage = errors.New("usage")
