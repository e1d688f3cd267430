package compositor

import "fmt"

// ImportError rejects a commit whose buffer can't be used. The client
// stays connected and the surface keeps showing what it showed before.
type ImportError struct {
	Buffer uint32
	Err    error
}

func (err *ImportError) Error() string {
	return fmt.Sprintf("import buffer %v: %v", err.Buffer, err.Err)
}

func (err *ImportError) Unwrap() error {
	return err.Err
}
