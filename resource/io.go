package resource

import (
	"context"
	"io"
)

// Reader throttles an io.Reader through a controller.
type Reader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

// NewReader wraps r. With a nil controller reads pass through.
func NewReader(ctx context.Context, r io.Reader, rc *Controller) *Reader {
	return &Reader{ctx: ctx, r: r, rc: rc}
}

// Read charges the bytes actually read, so a short read is not overbilled.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.rc.WaitRead(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
