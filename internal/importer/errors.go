package importer

import (
	"errors"
	"fmt"
)

var (
	ErrTooFewRows      = errors.New("file must have headers and at least one row")
	ErrUnsupportedFile = errors.New("only .xlsx, .xls and .csv files are supported")
	ErrNoSheets        = errors.New("no sheets found in file")
)

// FileShapeError reports a file that cannot be parsed at all. No rows are
// kept when it is returned.
type FileShapeError struct {
	Filename string
	Err      error
}

func (e *FileShapeError) Error() string {
	if e.Filename == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *FileShapeError) Unwrap() error {
	return e.Err
}

func newFileShapeError(filename string, err error) *FileShapeError {
	return &FileShapeError{Filename: filename, Err: err}
}

// IsFileShapeError reports whether err is a FileShapeError.
func IsFileShapeError(err error) bool {
	var fse *FileShapeError
	return errors.As(err, &fse)
}
