package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vemos"
	"github.com/hupe1980/vemos/blobstore"
	"github.com/hupe1980/vemos/blobstore/minio"
	"github.com/hupe1980/vemos/blobstore/s3"
	"github.com/hupe1980/vemos/codec"
	"github.com/hupe1980/vemos/config"
	"github.com/hupe1980/vemos/observability"
	"github.com/hupe1980/vemos/resource"
	"github.com/hupe1980/vemos/session"
)

// remoteCacheEntries bounds the open blobs cached for remote backends.
const remoteCacheEntries = 64

var errNoSessionStore = errors.New("job configures neither a session catalog nor a storage backend")

// runtime is an engine built from a job file.
type runtime struct {
	job     *config.Job
	eng     *vemos.Engine
	session string
	repo    session.Repository

	reg        *prometheus.Registry
	metricsOut string
	closers    []io.Closer
}

func openRuntime(ctx context.Context, g *globalFlags, stderr io.Writer) (*runtime, error) {
	job, err := config.LoadFile(g.jobPath)
	if err != nil {
		return nil, err
	}
	rt := &runtime{
		job:        job,
		session:    job.Name,
		reg:        prometheus.NewRegistry(),
		metricsOut: g.metricsOut,
	}
	if g.session != "" {
		rt.session = g.session
	}

	logger, err := newLogger(job, stderr)
	if err != nil {
		return nil, err
	}
	metrics, err := observability.NewPrometheus(rt.reg, "vemos")
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, job.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", job.Storage.Backend, err)
	}
	if err := rt.openRepository(job.Session, store); err != nil {
		return nil, err
	}

	optFns := []vemos.Option{
		vemos.WithLogger(logger),
		vemos.WithMetricsCollector(metrics),
		vemos.WithResourceController(resource.NewController(job.ResourceConfig())),
	}
	if job.Resources.SampleCache > 0 {
		optFns = append(optFns, vemos.WithSampleCacheSize(job.Resources.SampleCache))
	}
	if rt.repo != nil {
		optFns = append(optFns, vemos.WithRepository(rt.repo))
	}
	switch {
	case store != nil:
		optFns = append(optFns, vemos.WithMatrixOutput(store))
	case job.MatrixDirectory != "":
		optFns = append(optFns, vemos.WithMatrixOutput(blobstore.NewLocalStore(job.MatrixDirectory)))
	}
	rt.eng = vemos.New(optFns...)
	return rt, nil
}

func newLogger(job *config.Job, w io.Writer) (*vemos.Logger, error) {
	level, err := job.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(job.LogFormat, "json") {
		return vemos.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return vemos.NewLogger(slog.NewTextHandler(w, opts)), nil
}

// openStorage returns the configured output store or nil without a backend.
func openStorage(ctx context.Context, cfg config.StorageConfig) (blobstore.BlobStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "local":
		return blobstore.NewLocalStore(cfg.Path), nil
	case "s3":
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		var store blobstore.BlobStore = s3.NewStore(client, cfg.Bucket, cfg.Prefix)
		if cfg.DynamoDBTable != "" {
			baseURI := "s3://" + cfg.Bucket + "/" + strings.Trim(cfg.Prefix, "/")
			store = s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, baseURI)
		}
		return blobstore.NewCachingStore(store, remoteCacheEntries)
	case "minio":
		client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, err
		}
		return blobstore.NewCachingStore(minio.NewStore(client, cfg.Bucket, cfg.Prefix), remoteCacheEntries)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// openRepository prefers the SQLite catalog and falls back to versioned
// blobs in the storage backend.
func (rt *runtime) openRepository(cfg config.SessionConfig, store blobstore.BlobStore) error {
	var optFns []session.Option
	if cfg.Codec != "" {
		c, ok := codec.ByName(cfg.Codec)
		if !ok {
			return fmt.Errorf("unknown session codec %q (have %s)", cfg.Codec, strings.Join(codec.Names(), ", "))
		}
		optFns = append(optFns, session.WithCodec(c))
	}
	comp, err := session.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}
	optFns = append(optFns, session.WithCompression(comp))

	switch {
	case cfg.Catalog != "":
		catalog, err := session.OpenSQLiteCatalog(cfg.Catalog, optFns...)
		if err != nil {
			return err
		}
		rt.repo = catalog
		rt.closers = append(rt.closers, catalog)
	case store != nil:
		rt.repo = session.NewBlobRepository(store, optFns...)
	}
	return nil
}

// restore loads the runtime's session into the engine.
func (rt *runtime) restore(ctx context.Context) error {
	if rt.repo == nil {
		return errNoSessionStore
	}
	return rt.eng.LoadSession(ctx, rt.session)
}

// save stores the engine state under the runtime's session name.
func (rt *runtime) save(ctx context.Context) (session.Info, error) {
	if rt.repo == nil {
		return session.Info{}, errNoSessionStore
	}
	return rt.eng.SaveSession(ctx, rt.session)
}

// Close writes the metrics file and releases the repository.
func (rt *runtime) Close() error {
	var errs []error
	if rt.metricsOut != "" {
		if err := prometheus.WriteToTextfile(rt.metricsOut, rt.reg); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for _, c := range rt.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
