package worker

import "errors"

var (
	ErrStopped       = errors.New("worker is stopped")
	ErrUnknownAction = errors.New("unknown action")
)
