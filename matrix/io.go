package matrix

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/vemos/vemoserr"
)

const maxLineSize = 64 << 20

// ReadDense parses a whitespace delimited square matrix. Blank lines and
// lines starting with '#' are ignored; "nan" marks an unknown score.
func ReadDense(r io.Reader) (*Dense, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		rows [][]float64
		line int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		row := make([]float64, len(fields))
		for k, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, vemoserr.NewIngestionError("", line, fmt.Sprintf("column %d", k+1), err)
			}
			row[k] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, vemoserr.NewIngestionError("", line,
				fmt.Sprintf("row has %d columns, expected %d", len(row), len(rows[0])), nil)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, vemoserr.NewIngestionError("", 0, "empty matrix", nil)
	}
	if len(rows[0]) != len(rows) {
		return nil, vemoserr.NewIngestionError("", 0,
			fmt.Sprintf("matrix is %d×%d, expected a square matrix", len(rows), len(rows[0])), nil)
	}
	return NewDenseFromRows(rows)
}

// WriteDense writes d as space separated rows in %.18e notation.
func WriteDense(w io.Writer, d *Dense) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for i := 0; i < d.n; i++ {
		for j := 0; j < d.n; j++ {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			v := d.At(i, j)
			buf = buf[:0]
			if math.IsNaN(v) {
				buf = append(buf, "nan"...)
			} else {
				buf = strconv.AppendFloat(buf, v, 'e', 18, 64)
			}
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
