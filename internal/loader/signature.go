package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"fjacquet/fueltrack/internal/parsererror"
)

var (
	ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipSignature  = []byte{'P', 'K', 0x03, 0x04}
)

// checkSignature returns parsererror.ErrNotSpreadsheet when path does not start with
// the container signature.
func checkSignature(path string, signature []byte) error {
	// #nosec G304 -- caller supplied import path
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, len(signature))
	if _, err := io.ReadFull(f, head); err != nil {
		return fmt.Errorf("%w: file shorter than signature", parsererror.ErrNotSpreadsheet)
	}
	if !bytes.Equal(head, signature) {
		return fmt.Errorf("%w: unexpected signature % X", parsererror.ErrNotSpreadsheet, head)
	}
	return nil
}

// OLE2 header fields checked before handing a file to the BIFF decoder, which does
// not validate them and can loop on a degenerate sector table.
const (
	ole2HeaderSize    = 512
	ole2MinSize       = 3 * ole2HeaderSize
	ole2ByteOrderAt   = 28
	ole2SectorShiftAt = 30
)

// checkOLE2Header rejects containers too small or too malformed to hold a workbook.
func checkOLE2Header(path string) error {
	if err := checkSignature(path, ole2Signature); err != nil {
		return err
	}

	// #nosec G304 -- caller supplied import path
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, ole2HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("%w: truncated OLE2 header", parsererror.ErrNotSpreadsheet)
	}
	if header[ole2ByteOrderAt] != 0xFE || header[ole2ByteOrderAt+1] != 0xFF {
		return fmt.Errorf("%w: bad OLE2 byte order mark", parsererror.ErrNotSpreadsheet)
	}
	if shift := header[ole2SectorShiftAt]; shift != 9 && shift != 12 {
		return fmt.Errorf("%w: bad OLE2 sector shift %d", parsererror.ErrNotSpreadsheet, shift)
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < ole2MinSize {
		return fmt.Errorf("%w: OLE2 container of %d bytes", parsererror.ErrNotSpreadsheet, info.Size())
	}
	return nil
}
