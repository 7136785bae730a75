package service

import "errors"

// Sentinel errors returned by the views.
var (
	ErrIndexOutOfRange = errors.New("row index out of range")
	ErrNotLoaded       = errors.New("view not loaded")
	ErrNotStarted      = errors.New("service not started")
)
