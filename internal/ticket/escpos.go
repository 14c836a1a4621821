package ticket

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ESC/POS command bytes.
var (
	cmdInit        = []byte{0x1B, 0x40}
	cmdCodePage858 = []byte{0x1B, 0x74, 19}
	cmdBoldOn      = []byte{0x1B, 0x45, 0x01}
	cmdBoldOff     = []byte{0x1B, 0x45, 0x00}
	cmdDoubleSize  = []byte{0x1D, 0x21, 0x11}
	cmdNormalSize  = []byte{0x1D, 0x21, 0x00}
	cmdAlignCenter = []byte{0x1B, 0x61, 0x01}
	cmdAlignLeft   = []byte{0x1B, 0x61, 0x00}
	cmdBeep        = []byte{0x1B, 0x42, 0x03, 0x02}
	cmdFeedLines   = []byte{0x1B, 0x64, 0x04}
	cmdPartialCut  = []byte{0x1D, 0x56, 0x42, 0x00}
)

// RenderESCPOS returns the control-coded ticket for a thermal printer. The
// header is bold and double size, the paper is cut at the end and a beep is
// added only when the ticket has rush items.
func RenderESCPOS(t Ticket) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(cmdInit)
	buf.Write(cmdCodePage858)

	// Double size halves the columns available for the station title.
	buf.Write(cmdAlignCenter)
	buf.Write(cmdBoldOn)
	buf.Write(cmdDoubleSize)
	if err := writeRow(&buf, fit(strings.ToUpper(t.Header.Station), Width/2, printerGlyphs)); err != nil {
		return nil, err
	}
	buf.Write(cmdNormalSize)
	buf.Write(cmdBoldOff)
	buf.Write(cmdAlignLeft)

	for _, row := range metaRows(t.Header, printerGlyphs) {
		if err := writeRow(&buf, row); err != nil {
			return nil, err
		}
	}

	rush := t.HasRush()
	for _, row := range bodyRows(t, printerGlyphs) {
		if rush && strings.TrimSpace(row) == rushBanner {
			buf.Write(cmdBoldOn)
			if err := writeRow(&buf, row); err != nil {
				return nil, err
			}
			buf.Write(cmdBoldOff)
			continue
		}
		if err := writeRow(&buf, row); err != nil {
			return nil, err
		}
	}

	buf.Write(cmdFeedLines)
	if rush {
		buf.Write(cmdBeep)
	}
	buf.Write(cmdPartialCut)
	return buf.Bytes(), nil
}

// Encode returns the transport-safe form of a control-coded ticket.
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket payload: %w", err)
	}
	return raw, nil
}

func writeRow(buf *bytes.Buffer, row string) error {
	encoded, err := toPrinterCharset(row)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	buf.WriteByte('\n')
	return nil
}

// toPrinterCharset converts UTF-8 text to code page 858. Runes outside the
// code page are replaced with its substitute byte.
func toPrinterCharset(s string) ([]byte, error) {
	encoder := encoding.ReplaceUnsupported(charmap.CodePage858.NewEncoder())
	out, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("cannot encode ticket text: %w", err)
	}
	return out, nil
}
