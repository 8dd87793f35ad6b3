package validation

import "errors"

var (
	ErrUnreadableFile    = errors.New("error reading file")
	ErrUnknownType       = errors.New("could not determine file type")
	ErrUnsupportedFormat = errors.New("unsupported format")
)
