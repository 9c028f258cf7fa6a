package protoerr

// RuntimeError is the only error type that crosses the host boundary. It
// carries the rendered message of the original failure and nothing else.
type RuntimeError struct {
	msg string
}

func (e *RuntimeError) Error() string {
	return e.msg
}

// ToHost translates err for a caller on the other side of the host boundary.
// A nil error stays nil and an error that was already translated is returned
// as is.
func ToHost(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	return &RuntimeError{msg: err.Error()}
}
