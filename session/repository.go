package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/vemos/blobstore"
	"github.com/hupe1980/vemos/codec"
)

// Repository stores named snapshots. Saving a name that exists replaces it
// as far as Load is concerned.
type Repository interface {
	Save(ctx context.Context, snap *Snapshot) (Info, error)
	Load(ctx context.Context, name string) (*Snapshot, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, name string) error
}

const (
	sessionsPrefix = "sessions/"
	pointerName    = "CURRENT"
	blobExt        = ".vms"
)

type options struct {
	codec       codec.Codec
	compression Compression
	keep        int
}

// Option configures a repository.
type Option func(*options)

// WithCodec selects the payload codec. Default codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithCompression selects the payload compression. Default zstd.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithKeepVersions prunes all but the newest n versions after a save.
// Zero keeps every version.
func WithKeepVersions(n int) Option {
	return func(o *options) { o.keep = n }
}

func applyOptions(optFns []Option) options {
	o := options{codec: codec.Default, compression: CompressionZSTD}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// BlobRepository versions snapshots in a blob store. Version v of session
// name lives at sessions/<name>/<v>.vms; sessions/<name>/CURRENT names the
// latest version and is written last.
type BlobRepository struct {
	store blobstore.BlobStore
	opts  options
}

// NewBlobRepository returns a repository on store.
func NewBlobRepository(store blobstore.BlobStore, optFns ...Option) *BlobRepository {
	return &BlobRepository{store: store, opts: applyOptions(optFns)}
}

func sessionDir(name string) string {
	return sessionsPrefix + name + "/"
}

func versionBlob(name string, version uint64) string {
	return sessionDir(name) + fmt.Sprintf("%08d", version) + blobExt
}

func parseVersion(blob string) (uint64, bool) {
	base := path.Base(blob)
	if !strings.HasSuffix(base, blobExt) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSuffix(base, blobExt), 10, 64)
	return v, err == nil
}

func (r *BlobRepository) versions(ctx context.Context, name string) ([]uint64, error) {
	blobs, err := r.store.List(ctx, sessionDir(name))
	if err != nil {
		return nil, err
	}
	var out []uint64
	for _, b := range blobs {
		if v, ok := parseVersion(b); ok && path.Dir(b) == strings.TrimSuffix(sessionDir(name), "/") {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Save writes the next version of snap and moves the pointer to it.
func (r *BlobRepository) Save(ctx context.Context, snap *Snapshot) (Info, error) {
	if err := snap.Validate(); err != nil {
		return Info{}, err
	}
	data, err := Encode(snap, r.opts.codec, r.opts.compression)
	if err != nil {
		return Info{}, err
	}

	versions, err := r.versions(ctx, snap.Name)
	if err != nil {
		return Info{}, fmt.Errorf("list versions of %q: %w", snap.Name, err)
	}
	next := uint64(1)
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	blob := versionBlob(snap.Name, next)
	if err := r.store.Put(ctx, blob, data); err != nil {
		return Info{}, fmt.Errorf("write %s: %w", blob, err)
	}
	if err := r.store.Put(ctx, sessionDir(snap.Name)+pointerName, []byte(path.Base(blob))); err != nil {
		return Info{}, fmt.Errorf("commit %s: %w", blob, err)
	}

	if r.opts.keep > 0 {
		versions = append(versions, next)
		for _, v := range versions[:max(len(versions)-r.opts.keep, 0)] {
			if err := r.store.Delete(ctx, versionBlob(snap.Name, v)); err != nil {
				return Info{}, fmt.Errorf("prune version %d of %q: %w", v, snap.Name, err)
			}
		}
	}

	return Info{
		Name:      snap.Name,
		ID:        snap.ID,
		Version:   next,
		CreatedAt: snap.CreatedAt,
		Size:      int64(len(data)),
	}, nil
}

func (r *BlobRepository) current(ctx context.Context, name string) (string, uint64, error) {
	ptr, err := blobstore.ReadAll(ctx, r.store, sessionDir(name)+pointerName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", 0, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return "", 0, err
	}
	blob := sessionDir(name) + strings.TrimSpace(string(ptr))
	v, ok := parseVersion(blob)
	if !ok {
		return "", 0, fmt.Errorf("session %q points to invalid blob %q", name, ptr)
	}
	return blob, v, nil
}

// Load returns the version named by the pointer.
func (r *BlobRepository) Load(ctx context.Context, name string) (*Snapshot, error) {
	snap, _, err := r.load(ctx, name)
	return snap, err
}

func (r *BlobRepository) load(ctx context.Context, name string) (*Snapshot, Info, error) {
	if err := ValidateName(name); err != nil {
		return nil, Info{}, err
	}
	blob, version, err := r.current(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	data, err := r.readFrame(ctx, blob)
	if err != nil {
		return nil, Info{}, fmt.Errorf("read %s: %w", blob, err)
	}
	snap, _, err := Decode(data)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode %s: %w", blob, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, Info{}, fmt.Errorf("validate %s: %w", blob, err)
	}
	return snap, Info{Name: name, ID: snap.ID, Version: version, CreatedAt: snap.CreatedAt, Size: int64(len(data))}, nil
}

// readFrame checks the frame prefix with a ranged read before fetching the
// whole blob.
func (r *BlobRepository) readFrame(ctx context.Context, name string) ([]byte, error) {
	b, err := r.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	prefix := make([]byte, headerFixed)
	n, err := b.ReadAt(ctx, prefix, 0)
	if n < len(prefix) {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, ErrTruncated
	}
	if err := checkPrefix(prefix); err != nil {
		return nil, err
	}

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// List returns the committed sessions sorted by name.
func (r *BlobRepository) List(ctx context.Context) ([]Info, error) {
	blobs, err := r.store.List(ctx, sessionsPrefix)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, b := range blobs {
		name, _, ok := strings.Cut(strings.TrimPrefix(b, sessionsPrefix), "/")
		if ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		_, info, err := r.load(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Delete removes every version and the pointer of a session.
func (r *BlobRepository) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, _, err := r.current(ctx, name); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, sessionDir(name)+pointerName); err != nil {
		return err
	}
	blobs, err := r.store.List(ctx, sessionDir(name))
	if err != nil {
		return err
	}
	for _, b := range blobs {
		if err := r.store.Delete(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
