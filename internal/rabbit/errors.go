package rabbit

import "errors"

var (
	ErrMalformedJSON = errors.New("malformed JSON")
	ErrNotMainFile   = errors.New("not a message main file")
	ErrHeadersOnly   = errors.New("headers file without a main file")
	ErrFailedPair    = errors.New("message files could not be read")
)
