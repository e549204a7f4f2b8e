package utils

import (
	"os"
	"strings"
)

// TmpFile is a temporary file that is removed on Close unless Keep is set.
type TmpFile struct {
	Path string
	Keep bool
	file *os.File
}

// NewTmpFile creates an empty temporary file named "<prefix>*<suffix>" in
// the system temp directory.
func NewTmpFile(prefix, suffix string, keep bool) (*TmpFile, error) {
	f, err := os.CreateTemp("", prefix+"*"+suffix)
	if err != nil {
		return nil, err
	}
	return &TmpFile{Path: f.Name(), Keep: keep, file: f}, nil
}

// Open opens the file with the given flags. The caller closes the handle.
func (t *TmpFile) Open(flag int) (*os.File, error) {
	return os.OpenFile(t.Path, flag, 0600)
}

func (t *TmpFile) WriteBytes(data []byte) error {
	return os.WriteFile(t.Path, data, 0600)
}

// Close releases the handle and removes the file unless Keep is set. A
// failed remove takes precedence over a failed close.
func (t *TmpFile) Close() error {
	var closeErr error
	if t.file != nil {
		closeErr = t.file.Close()
		t.file = nil
	}
	if t.Keep || strings.TrimSpace(t.Path) == "" {
		return closeErr
	}
	if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}
