package resolver

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// ResolveDirectory builds records from the files below the root of fsys.
//
// Folder names are classified as data type, id or group; whatever is missing
// is inferred from the file name. When two records share an id but differ in
// one group level, every id is prefixed with that level's group name.
func ResolveDirectory(ctx context.Context, fsys fs.FS, types []record.DataType, opts Options) (*Result, error) {
	if err := record.ValidateDataTypes(types); err != nil {
		return nil, err
	}
	if !opts.DataTypesInFolders {
		if err := checkFormatCollisions(types); err != nil {
			return nil, err
		}
	}
	matcher, err := NewMatcher(types)
	if err != nil {
		return nil, err
	}
	b := &dirBuilder{
		types:     types,
		opts:      opts,
		matcher:   matcher,
		records:   record.NewSet(),
		groupings: record.NewGroupings(),
		idLevel:   -1,
	}
	if err := b.walk(ctx, fsys, "."); err != nil {
		return nil, err
	}
	return &Result{Records: b.records, Groupings: b.groupings}, nil
}

type dirBuilder struct {
	types     []record.DataType
	opts      Options
	matcher   *Matcher
	records   *record.Set
	groupings *record.Groupings

	// idLevel is the group level prefixed to ids once a collision was seen; -1 before.
	idLevel int
}

func (b *dirBuilder) excluded(dir string) bool {
	if dir == "." {
		return false
	}
	if strings.HasSuffix(path.Base(dir), GeneratedMatricesSuffix) {
		return true
	}
	for _, ex := range b.opts.ExcludeDirs {
		ex = strings.Trim(path.Clean(ex), "/")
		if dir == ex || strings.HasPrefix(dir, ex+"/") {
			return true
		}
	}
	return false
}

func (b *dirBuilder) walk(ctx context.Context, fsys fs.FS, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.excluded(dir) {
		return nil
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return vemoserr.NewIngestionError(dir, 0, "cannot read directory", err)
	}

	var files, dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	if len(files) > 0 && len(dirs) > 0 {
		return vemoserr.NewIngestionError(dir, 0, "files on same level as directories", nil)
	}

	for _, name := range files {
		if err := b.addFile(path.Join(dir, name)); err != nil {
			return err
		}
	}
	for _, name := range dirs {
		if err := b.walk(ctx, fsys, path.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (b *dirBuilder) dataTypeFolder(folder string) (string, bool) {
	if _, ok := record.Lookup(b.types, folder); ok {
		return folder, true
	}
	if singular, ok := strings.CutSuffix(folder, "s"); ok {
		if _, ok := record.Lookup(b.types, singular); ok {
			return singular, true
		}
	}
	return "", false
}

func (b *dirBuilder) addFile(rel string) error {
	folders := strings.Split(rel, "/")
	filename := folders[len(folders)-1]
	folders = folders[:len(folders)-1]

	var (
		dataType string
		id       string
		groups   []string
	)
	for level, folder := range folders {
		if dt, ok := b.dataTypeFolder(folder); ok {
			dataType = dt
			continue
		}
		if b.opts.IDsInFolders {
			if level == len(folders)-1 {
				id = folder
				continue
			}
			if _, ok := b.dataTypeFolder(folders[level+1]); ok {
				id = folder
				continue
			}
		}
		groups = append(groups, folder)
	}

	if dataType == "" || id == "" {
		if m, ok := b.matcher.Match(filename); ok {
			if dataType == "" {
				dataType = m.DataType
			}
			if id == "" {
				id = m.ID
			}
		}
	}

	switch {
	case dataType == "":
		return vemoserr.NewIngestionError(rel, 0, "cannot determine data type", nil)
	case id == "":
		return vemoserr.NewIngestionError(rel, 0, "cannot determine record id", nil)
	case len(groups) == 0:
		return vemoserr.NewIngestionError(rel, 0, "file belongs to no group", nil)
	}

	if b.idLevel >= 0 {
		if b.idLevel >= len(groups) {
			return vemoserr.NewIngestionError(rel, 0,
				fmt.Sprintf("ids are qualified by group level %d but the file has %d levels", b.idLevel+1, len(groups)), nil)
		}
		id = groups[b.idLevel] + "_" + id
	}

	existing, ok := b.records.Get(id)
	if !ok {
		return b.newRecord(id, groups, dataType, rel)
	}
	if b.idLevel >= 0 || len(existing.Groups) != len(groups) {
		existing.Files[dataType] = rel
		return nil
	}

	level := -1
	for k := range existing.Groups {
		if existing.Groups[k] != groups[k] {
			level = k
			break
		}
	}
	if level < 0 {
		existing.Files[dataType] = rel
		return nil
	}

	if err := b.qualifyIDs(level); err != nil {
		return vemoserr.NewIngestionError(rel, 0, "cannot qualify ids by group", err)
	}
	return b.newRecord(groups[level]+"_"+id, groups, dataType, rel)
}

// qualifyIDs prefixes every existing id with its group at level.
func (b *dirBuilder) qualifyIDs(level int) error {
	for _, r := range b.records.All() {
		if level >= len(r.Groups) {
			return fmt.Errorf("record %q has no group level %d", r.ID, level+1)
		}
	}
	mapping, err := b.records.Rekey(func(r *record.Record) string {
		return r.Groups[level] + "_" + r.ID
	})
	if err != nil {
		return err
	}
	b.groupings.Rekey(mapping)
	b.idLevel = level
	return nil
}

func (b *dirBuilder) newRecord(id string, groups []string, dataType, rel string) error {
	r := record.New(id, groups)
	r.Files[dataType] = rel
	if err := b.records.Add(r); err != nil {
		return vemoserr.NewIngestionError(rel, 0, "duplicate record", err)
	}
	for k, g := range groups {
		b.groupings.Add(record.OriginalLevel(k+1), g, id)
	}
	return nil
}
