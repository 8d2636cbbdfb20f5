// Package config loads job files for the vemos command.
//
// A job names the records to resolve, the matrices to load and where
// sessions and generated matrices are kept:
//
//	name: run1
//	source: directory
//	root: /data/run1
//	ids_in_folders: true
//	symmetrize: mean
//	matrices:
//	  - name: ssim
//	    path: matrices/ssim.txt
//	    kind: similarity
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resolver"
	"github.com/hupe1980/vemos/resource"
	"github.com/hupe1980/vemos/session"
)

// Source selects how records are resolved.
type Source string

const (
	SourceDirectory   Source = "directory"
	SourceDescription Source = "description"
	// SourceScores derives records from the ids of the first score list.
	SourceScores Source = "scores"
)

// Job is a parsed job file.
type Job struct {
	Name               string            `yaml:"name"`
	Source             Source            `yaml:"source"`
	Root               string            `yaml:"root"`
	Description        string            `yaml:"description"`
	MatrixDirectory    string            `yaml:"matrix_directory"`
	DataTypesInFolders bool              `yaml:"data_types_in_folders"`
	IDsInFolders       bool              `yaml:"ids_in_folders"`
	ExcludeDirs        []string          `yaml:"exclude_dirs"`
	DataTypes          []record.DataType `yaml:"data_types"`
	Matrices           []MatrixSource    `yaml:"matrices"`

	// Symmetrize is a strategy name ("max", "min", "mean", "ij", "ji"),
	// "skip" to drop asymmetric matrices or "reject" to fail.
	Symmetrize string `yaml:"symmetrize"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
	Resources ResourceConfig  `yaml:"resources"`
	Generate  []GenerateEntry `yaml:"generate"`
}

// MatrixSource is one matrix file. Dense files hold one matrix; list files
// hold one matrix per metric column and their Name is ignored.
type MatrixSource struct {
	Name   string        `yaml:"name"`
	Path   string        `yaml:"path"`
	Kind   matrix.Kind   `yaml:"kind"`
	Format matrix.Format `yaml:"format"`
}

// SessionConfig selects the session catalog.
type SessionConfig struct {
	// Catalog is the SQLite database file. Relative paths are resolved
	// against the job file.
	Catalog     string `yaml:"catalog"`
	Codec       string `yaml:"codec"`
	Compression string `yaml:"compression"`
}

// StorageConfig selects the blob store for generated and fused matrices.
type StorageConfig struct {
	// Backend is "local", "s3", "minio" or empty for no output store.
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	UseSSL   bool   `yaml:"use_ssl"`

	// DynamoDBTable, if set with the s3 backend, commits session pointers
	// through DynamoDB.
	DynamoDBTable string `yaml:"dynamodb_table"`
}

// ResourceConfig limits generation.
type ResourceConfig struct {
	SampleMemoryMB  int64 `yaml:"sample_memory_mb"`
	Workers         int64 `yaml:"workers"`
	ReadBytesPerSec int64 `yaml:"read_bytes_per_sec"`
	SampleCache     int   `yaml:"sample_cache"`
}

// GenerateEntry requests one generated matrix.
type GenerateEntry struct {
	DataType string `yaml:"data_type"`
	Metric   string `yaml:"metric"`
	Name     string `yaml:"name"`
}

// LoadFile reads and validates the job at path. Relative paths inside the
// job are resolved against the directory of path.
func LoadFile(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	job, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	job.resolvePaths(filepath.Dir(path))
	return job, nil
}

// Parse decodes and validates a job. Missing fields get their defaults.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job yaml: %w", err)
	}
	job.applyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *Job) applyDefaults() {
	if j.Source == "" {
		j.Source = SourceDirectory
	}
	if len(j.DataTypes) == 0 {
		j.DataTypes = record.DefaultDataTypes()
	}
	if j.Symmetrize == "" {
		j.Symmetrize = "reject"
	}
	if j.LogLevel == "" {
		j.LogLevel = "info"
	}
	if j.LogFormat == "" {
		j.LogFormat = "text"
	}
	if j.Session.Compression == "" {
		j.Session.Compression = "zstd"
	}
}

// Validate checks the job for consistency.
func (j *Job) Validate() error {
	if err := session.ValidateName(j.Name); err != nil {
		return fmt.Errorf("job name: %w", err)
	}
	switch j.Source {
	case SourceDirectory:
		if j.Root == "" {
			return errors.New("directory source needs a root")
		}
	case SourceDescription:
		if j.Description == "" {
			return errors.New("description source needs a description file")
		}
	case SourceScores:
		if !j.hasListMatrix() {
			return errors.New("scores source needs a list matrix")
		}
	default:
		return fmt.Errorf("unknown source %q", j.Source)
	}
	if err := record.ValidateDataTypes(j.DataTypes); err != nil {
		return err
	}
	for i, m := range j.Matrices {
		if m.Path == "" {
			return fmt.Errorf("matrix %d has no path", i)
		}
		if m.Format == matrix.FormatMatrix && m.Name == "" {
			return fmt.Errorf("matrix %s needs a name", m.Path)
		}
	}
	if _, err := j.SymmetrizePolicy(); err != nil {
		return err
	}
	if _, err := j.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(j.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", j.LogFormat)
	}
	if _, err := session.ParseCompression(j.Session.Compression); err != nil {
		return err
	}
	switch j.Storage.Backend {
	case "", "local", "s3", "minio":
	default:
		return fmt.Errorf("unknown storage backend %q", j.Storage.Backend)
	}
	if j.Storage.Backend == "local" && j.Storage.Path == "" {
		return errors.New("local storage needs a path")
	}
	if (j.Storage.Backend == "s3" || j.Storage.Backend == "minio") && j.Storage.Bucket == "" {
		return fmt.Errorf("%s storage needs a bucket", j.Storage.Backend)
	}
	return nil
}

func (j *Job) hasListMatrix() bool {
	for _, m := range j.Matrices {
		if m.Format == matrix.FormatList {
			return true
		}
	}
	return false
}

func (j *Job) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	j.Root = abs(j.Root)
	j.Description = abs(j.Description)
	j.MatrixDirectory = abs(j.MatrixDirectory)
	j.Session.Catalog = abs(j.Session.Catalog)
	if j.Storage.Backend == "local" {
		j.Storage.Path = abs(j.Storage.Path)
	}
	for i := range j.Matrices {
		j.Matrices[i].Path = abs(j.Matrices[i].Path)
	}
}

// ResolverOptions returns the directory resolution options of the job.
func (j *Job) ResolverOptions() resolver.Options {
	return resolver.Options{
		DataTypesInFolders: j.DataTypesInFolders,
		IDsInFolders:       j.IDsInFolders,
		ExcludeDirs:        j.ExcludeDirs,
	}
}

// SymmetrizePolicy returns the policy named by Symmetrize.
func (j *Job) SymmetrizePolicy() (matrix.SymmetrizePolicy, error) {
	if strings.EqualFold(strings.TrimSpace(j.Symmetrize), "reject") {
		return matrix.RejectPolicy, nil
	}
	s, err := matrix.ParseStrategy(j.Symmetrize)
	if err != nil {
		return nil, err
	}
	return matrix.FixedPolicy(s), nil
}

// SlogLevel parses LogLevel.
func (j *Job) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(j.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// ResourceConfig returns the resource limits of the job.
func (j *Job) ResourceConfig() resource.Config {
	return resource.Config{
		SampleMemoryBytes: j.Resources.SampleMemoryMB << 20,
		Workers:           j.Resources.Workers,
		ReadBytesPerSec:   j.Resources.ReadBytesPerSec,
	}
}
