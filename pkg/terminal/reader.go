package terminal

import (
	"bytes"
	"io"
)

// Interrupt is the byte a raw terminal delivers for Ctrl-C.
const Interrupt byte = 0x03

// KeyReader reads one keystroke at a time.
type KeyReader struct {
	r   io.Reader
	buf [1]byte
}

// NewKeyReader wraps r, usually os.Stdin in raw mode.
func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{r: r}
}

// ReadKey blocks until exactly one byte is available and returns it
// verbatim, control characters included. It returns io.EOF when the input
// is closed.
func (k *KeyReader) ReadKey() (byte, error) {
	if _, err := io.ReadFull(k.r, k.buf[:]); err != nil {
		return 0, err
	}
	return k.buf[0], nil
}

// CRLFWriter translates "\n" into "\r\n". A raw terminal does not return the
// carriage on a bare line feed.
type CRLFWriter struct {
	w io.Writer
}

func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

// Write reports len(p) on success so callers see their own byte count.
func (c *CRLFWriter) Write(p []byte) (int, error) {
	out := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	// avoid doubling an existing "\r\n"
	out = bytes.ReplaceAll(out, []byte("\r\r\n"), []byte("\r\n"))
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
