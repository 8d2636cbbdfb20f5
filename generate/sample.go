package generate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io"
	"io/fs"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"

	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resource"
)

// loadSample reads and decodes one record file of the given kind.
func loadSample(ctx context.Context, fsys fs.FS, rc *resource.Controller, name string, kind record.Kind) (distance.Plane, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return distance.Plane{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(resource.NewReader(ctx, f, rc))
	if err != nil {
		return distance.Plane{}, err
	}

	switch {
	case kind.IsRaster():
		return decodeImage(data)
	case kind == record.KindCurve || kind == record.KindPointCloud:
		return parseTable(data)
	default:
		return distance.Plane{}, fmt.Errorf("cannot compare files of kind %s", kind)
	}
}

// decodeImage returns the first channel of an image scaled to [0, 1].
func decodeImage(data []byte) (distance.Plane, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return distance.Plane{}, err
	}
	b := img.Bounds()
	p := distance.NewPlane(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			p.Pix[(y-b.Min.Y)*p.Width+(x-b.Min.X)] = float64(r) / 0xffff
		}
	}
	return p, nil
}

// parseTable reads whitespace or comma separated numbers, one row per line.
func parseTable(data []byte) (distance.Plane, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var (
		p    distance.Plane
		line int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if p.Height == 0 {
			p.Width = len(fields)
		} else if len(fields) != p.Width {
			return distance.Plane{}, fmt.Errorf("line %d has %d values, expected %d", line, len(fields), p.Width)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return distance.Plane{}, fmt.Errorf("line %d: %w", line, err)
			}
			p.Pix = append(p.Pix, v)
		}
		p.Height++
	}
	if err := sc.Err(); err != nil {
		return distance.Plane{}, err
	}
	return p, nil
}
