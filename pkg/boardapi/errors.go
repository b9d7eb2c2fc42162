package boardapi

import "errors"

// Error kinds returned by Client operations. Callers match them with errors.Is.
var (
	// ErrRequestSerialization means the request could not be built; nothing was sent.
	ErrRequestSerialization = errors.New("request serialization failed")
	// ErrResponseDeserialization covers transport failures and bodies that are not the expected JSON shape.
	ErrResponseDeserialization = errors.New("response deserialization failed")
	// ErrRecordInitialization means the JSON decoded but a required field was missing or mistyped.
	ErrRecordInitialization = errors.New("record initialization failed")
	// ErrEmailConflict is returned by SignUp when the server answers 406.
	ErrEmailConflict = errors.New("email already registered")
)
