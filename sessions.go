package vemos

import (
	"context"
	"slices"
	"time"

	"github.com/hupe1980/vemos/session"
)

// Snapshot captures the committed state under name. An empty name keeps the
// name of the state.
func (e *Engine) Snapshot(name string) *session.Snapshot {
	s := e.State()
	if name == "" {
		name = s.Name
	}
	snap := session.New(name)
	snap.DirectoryPath = s.DirectoryPath
	snap.DescriptionPath = s.DescriptionPath
	snap.MatrixDirectory = s.MatrixDirectory
	snap.Matrices = s.Matrices
	snap.Records = s.Records
	snap.Groupings = s.Groupings
	snap.DataTypes = slices.Clone(s.DataTypes)
	snap.HasFiles = s.HasFiles
	return snap
}

// SaveSession stores the committed state in the repository under name.
func (e *Engine) SaveSession(ctx context.Context, name string) (session.Info, error) {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	info, err := e.saveSession(ctx, name)
	e.opts.metricsCollector.RecordSession("save", time.Since(start), err)
	e.opts.logger.LogSession(ctx, "save", name, info.Version, err)
	return info, err
}

func (e *Engine) saveSession(ctx context.Context, name string) (session.Info, error) {
	if e.opts.repository == nil {
		return session.Info{}, ErrNoRepository
	}
	snap := e.Snapshot(name)
	info, err := e.opts.repository.Save(ctx, snap)
	if err != nil {
		return session.Info{}, translateError(err)
	}
	next := e.State().derive()
	next.Name = snap.Name
	e.commit(next)
	return info, nil
}

// LoadSession replaces the committed state with the named session.
func (e *Engine) LoadSession(ctx context.Context, name string) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	err := e.loadSession(ctx, name)
	e.opts.metricsCollector.RecordSession("load", time.Since(start), err)
	e.opts.logger.LogSession(ctx, "load", name, 0, err)
	return err
}

func (e *Engine) loadSession(ctx context.Context, name string) error {
	if e.opts.repository == nil {
		return ErrNoRepository
	}
	snap, err := e.opts.repository.Load(ctx, name)
	if err != nil {
		return translateError(err)
	}
	next := &State{
		Name:            snap.Name,
		DirectoryPath:   snap.DirectoryPath,
		DescriptionPath: snap.DescriptionPath,
		MatrixDirectory: snap.MatrixDirectory,
		Records:         snap.Records,
		Groupings:       snap.Groupings,
		Matrices:        snap.Matrices,
		DataTypes:       snap.DataTypes,
		HasFiles:        snap.HasFiles,
	}
	if err := e.reindex(ctx, next); err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// ListSessions returns the sessions of the repository.
func (e *Engine) ListSessions(ctx context.Context) ([]session.Info, error) {
	if e.opts.repository == nil {
		return nil, ErrNoRepository
	}
	return e.opts.repository.List(ctx)
}

// DeleteSession removes a session from the repository.
func (e *Engine) DeleteSession(ctx context.Context, name string) error {
	if e.opts.repository == nil {
		return ErrNoRepository
	}
	start := time.Now()
	err := translateError(e.opts.repository.Delete(ctx, name))
	e.opts.metricsCollector.RecordSession("delete", time.Since(start), err)
	e.opts.logger.LogSession(ctx, "delete", name, 0, err)
	return err
}
