//go:build !statsview

package statsview

import (
	"errors"
	"io"
)

// ErrUnavailable is returned by Launch in builds without the statsview tag.
var ErrUnavailable = errors.New("statsview: rebuild with -tags statsview")

// Launch reports that the server is not compiled in.
func Launch(addr string, output io.Writer) error { return ErrUnavailable }

// Available returns false without the statsview build tag.
func Available() bool { return false }
