package blockfrost

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrBadResponse   = errors.New("unexpected response from provider")
	ErrFailedToParse = errors.New("failed to parse response")
)
