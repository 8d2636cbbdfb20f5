package record

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/vemos/vemoserr"
)

// Kind is the closed set of record data kinds.
type Kind uint8

const (
	KindImage Kind = iota
	KindSegmentation
	KindCurve
	KindPointCloud
	KindDescription
)

var kindNames = [...]string{
	KindImage:        "Image",
	KindSegmentation: "Segmentation",
	KindCurve:        "Curve",
	KindPointCloud:   "PointCloud",
	KindDescription:  "Description",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind parses a kind name case-insensitively. "Point Cloud" is accepted.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	for i, name := range kindNames {
		if strings.EqualFold(name, norm) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown data kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid data kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsRaster reports whether files of this kind are decoded as images.
func (k Kind) IsRaster() bool {
	return k == KindImage || k == KindSegmentation
}

// DataType is a configured data type: how its files are named and what they contain.
//
// Formats are glob-like file name patterns ("*_seg"); Extensions include the
// leading dot (".png").
type DataType struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       Kind     `json:"kind" yaml:"kind"`
	Formats    []string `json:"formats" yaml:"formats"`
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// DefaultDataTypes returns the built-in data type configuration.
func DefaultDataTypes() []DataType {
	return []DataType{
		{Name: "Image", Kind: KindImage, Formats: []string{"*"}, Extensions: []string{".jpg", ".png", ".tif"}},
		{Name: "Segmentation", Kind: KindSegmentation, Formats: []string{"*_segmentation", "*_mask", "*_seg"}, Extensions: []string{".jpg", ".png", ".tif"}},
		{Name: "Curve", Kind: KindCurve, Formats: []string{"*"}, Extensions: []string{".txt"}},
	}
}

// ParseList splits the comma separated notation used for formats and
// extensions ("*_mask, *_seg"). Empty items are dropped.
func ParseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Overlaps reports whether the two data types share at least one extension
// and at least one format, which makes files of the two types indistinguishable.
func (dt DataType) Overlaps(other DataType) bool {
	extOverlap := slices.ContainsFunc(dt.Extensions, func(e string) bool {
		return slices.Contains(other.Extensions, e)
	})
	if !extOverlap {
		return false
	}
	return slices.ContainsFunc(dt.Formats, func(f string) bool {
		return slices.Contains(other.Formats, f)
	})
}

// ValidateDataTypes checks that data type names are unique and non-empty.
func ValidateDataTypes(types []DataType) error {
	seen := make(map[string]struct{}, len(types))
	for _, dt := range types {
		if dt.Name == "" {
			return fmt.Errorf("data type of kind %s has no name", dt.Kind)
		}
		if _, dup := seen[dt.Name]; dup {
			return &vemoserr.NamingCollisionError{Namespace: "data type", Name: dt.Name}
		}
		seen[dt.Name] = struct{}{}
	}
	return nil
}

// Lookup returns the data type with the given name.
func Lookup(types []DataType, name string) (DataType, bool) {
	for _, dt := range types {
		if dt.Name == name {
			return dt, true
		}
	}
	return DataType{}, false
}
