// Package fitstest writes minimal FITS files for tests. The fits dependency
// is read-only, so fixtures with binary table extensions are assembled by
// hand: an empty primary HDU followed by one BINTABLE of float64 scalars.
package fitstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const blockSize = 2880

// Column is one float64 column of a binary table extension.
type Column struct {
	Name   string
	Values []float64
}

// WriteTable writes a FITS file under dir with a single binary table holding
// the given columns, stored big-endian as TFORM 'D' scalars. Extra integer
// keys (DETCHANS and friends) are appended to the extension header. All
// columns must agree on the row count; zero rows is allowed.
func WriteTable(t *testing.T, dir, name string, keys map[string]int, cols ...Column) string {
	t.Helper()

	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0].Values)
	}
	for _, c := range cols {
		require.Len(t, c.Values, rows, "column %s row count", c.Name)
	}

	var buf bytes.Buffer
	header(&buf,
		card("SIMPLE", "T"),
		card("BITPIX", "8"),
		card("NAXIS", "0"),
	)

	cards := []string{
		strCard("XTENSION", "BINTABLE"),
		card("BITPIX", "8"),
		card("NAXIS", "2"),
		card("NAXIS1", fmt.Sprintf("%d", 8*len(cols))),
		card("NAXIS2", fmt.Sprintf("%d", rows)),
		card("PCOUNT", "0"),
		card("GCOUNT", "1"),
		card("TFIELDS", fmt.Sprintf("%d", len(cols))),
	}
	for i, c := range cols {
		cards = append(cards,
			strCard(fmt.Sprintf("TTYPE%d", i+1), c.Name),
			strCard(fmt.Sprintf("TFORM%d", i+1), "D"),
		)
	}
	for k, v := range keys {
		cards = append(cards, card(k, fmt.Sprintf("%d", v)))
	}
	header(&buf, cards...)

	for r := 0; r < rows; r++ {
		for _, c := range cols {
			require.NoError(t, binary.Write(&buf, binary.BigEndian, c.Values[r]))
		}
	}
	pad(&buf, 0)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// card renders an 80-byte header card. The '=' must sit in column 9.
func card(key, value string) string {
	return fmt.Sprintf("%-8s= %-70s", key, value)
}

// strCard renders a string-valued card. The trailing comment keeps a
// non-space byte after the closing quote, which the reader needs to
// terminate the string.
func strCard(key, value string) string {
	return card(key, fmt.Sprintf("'%s' / s", value))
}

// header writes the cards, the END card and space padding out to a full
// block.
func header(buf *bytes.Buffer, cards ...string) {
	for _, c := range cards {
		buf.WriteString(c)
	}
	buf.WriteString(fmt.Sprintf("%-80s", "END"))
	pad(buf, ' ')
}

func pad(buf *bytes.Buffer, fill byte) {
	for buf.Len()%blockSize != 0 {
		buf.WriteByte(fill)
	}
}
