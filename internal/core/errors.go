package core

import "errors"

var (
	ErrDuplicateImage       = errors.New("duplicate image")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)
