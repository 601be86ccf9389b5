package common

import "fmt"

var (
	ErrUnexpectedStatus = fmt.Errorf("unexpected http status")
	ErrDecodeResponse   = fmt.Errorf("cannot decode response")
	ErrMissingResults   = fmt.Errorf("launch collection has no results field")
	ErrMissingImage     = fmt.Errorf("launch record has no image field")
	ErrInvalidFileName  = fmt.Errorf("cannot derive file name from url")
	ErrInvalidURL       = fmt.Errorf("invalid url")
	ErrRunNotFound      = fmt.Errorf("run not found")
)
