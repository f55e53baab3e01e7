package text

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeWindows1252 reads all of r, decoding from the Windows-1252
// encoding the instrument report generators write.
func DecodeWindows1252(r io.Reader) (string, error) {
	raw, err := io.ReadAll(transform.NewReader(r, charmap.Windows1252.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decoding windows-1252: %w", err)
	}
	return string(raw), nil
}

// ReadFileWindows1252 reads the file at path as Windows-1252 text.
func ReadFileWindows1252(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return DecodeWindows1252(f)
}
