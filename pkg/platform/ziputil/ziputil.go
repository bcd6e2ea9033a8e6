// Package ziputil builds reproducible zip archives: every entry carries the
// same fixed timestamp and is compressed with klauspost's flate.
package ziputil

import (
	"archive/zip"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

// Epoch is the modification time stamped on every entry.
var Epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewWriter returns a zip writer whose Deflate method uses klauspost/compress.
func NewWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return zw
}

// Create adds a deflated entry with the fixed timestamp.
func Create(zw *zip.Writer, name string) (io.Writer, error) {
	return zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: Epoch,
	})
}

// WriteFile adds a complete entry.
func WriteFile(zw *zip.Writer, name string, data []byte) error {
	w, err := Create(zw, name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
