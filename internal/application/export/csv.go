package export

import (
	"bytes"
	"encoding/csv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// utf8BOM lets spreadsheet applications detect the encoding
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvTable accumulates an RFC 4180 document in memory
type csvTable struct {
	buf bytes.Buffer
	w   *csv.Writer
}

func newCSVTable(header ...string) *csvTable {
	t := &csvTable{}
	t.buf.Write(utf8BOM)
	t.w = csv.NewWriter(&t.buf)
	t.w.UseCRLF = true
	t.row(header...)
	return t
}

func (t *csvTable) row(cells ...string) {
	for i, c := range cells {
		cells[i] = cleanCell(c)
	}
	// csv.Writer only fails when the underlying writer does; bytes.Buffer never does
	_ = t.w.Write(cells)
}

func (t *csvTable) bytes() ([]byte, error) {
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return nil, err
	}
	return t.buf.Bytes(), nil
}

// cleanCell NFC-normalizes a value and neutralizes spreadsheet formulas
func cleanCell(s string) string {
	s = norm.NFC.String(s)
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) && !looksNumeric(s) {
		return "'" + s
	}
	return s
}

func looksNumeric(s string) bool {
	if len(s) < 2 || (s[0] != '-' && s[0] != '+') {
		return false
	}
	for _, c := range s[1:] {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}
