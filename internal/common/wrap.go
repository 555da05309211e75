package common

// wrapped pairs a sentinel with human-readable text. errors.Is matches the
// sentinel; Error() returns the text the transport layer shows to clients.
type wrapped struct {
	sentinel error
	msg      string
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.sentinel }

// WithMessage attaches client-facing text to one of the sentinel errors.
func WithMessage(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}
