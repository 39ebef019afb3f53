package masker

import "errors"

var (
	ErrConfigNotPointer = errors.New("config must be a non-nil pointer to a struct")
	ErrConfigNotStruct  = errors.New("config must point to a struct")
)
