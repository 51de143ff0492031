package engine

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/nanostore/internal/config"
	"github.com/vango-dev/nanostore/internal/errors"
)

// Handle is an engine opened from configuration.
//
// Engine is the fully wrapped engine (namespace, instrumentation) to install
// with SetDefault. Base is the unwrapped backend.
type Handle struct {
	Engine Engine
	Base   Engine
}

// Close releases the backend if it holds resources.
func (h *Handle) Close() error {
	if c, ok := h.Base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SQLite returns the SQLite backend, or nil for other kinds.
func (h *Handle) SQLite() *SQLite {
	s, _ := h.Base.(*SQLite)
	return s
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

type openOptions struct {
	metrics  *Metrics
	logger   *slog.Logger
	s3Client S3API
}

// WithMetrics sets the collectors used when instrumentation is enabled.
func WithMetrics(m *Metrics) OpenOption {
	return func(o *openOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger passed to backends that log.
func WithLogger(l *slog.Logger) OpenOption {
	return func(o *openOptions) {
		o.logger = l
	}
}

// WithS3Client overrides the S3 client built from configuration.
func WithS3Client(c S3API) OpenOption {
	return func(o *openOptions) {
		o.s3Client = c
	}
}

// Open builds the engine described by cfg.
func Open(cfg config.EngineConfig, opts ...OpenOption) (*Handle, error) {
	o := &openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	var (
		base Engine
		err  error
	)
	switch cfg.Kind {
	case config.EngineMemory, "":
		base = NewMemory()
	case config.EngineFile:
		base, err = OpenFile(cfg.Path)
	case config.EngineSQLite:
		base, err = OpenSQLite(cfg.Path, WithSQLiteLogger(o.logger))
	case config.EngineS3:
		client := o.s3Client
		if client == nil {
			client = newS3Client(cfg)
		}
		base = NewS3(client, cfg.Bucket, cfg.Prefix)
	default:
		return nil, errors.New("N302").
			WithDetailf("%q", cfg.Kind).
			WithSuggestion("Use one of memory, file, sqlite, s3")
	}
	if err != nil {
		return nil, err
	}

	e := base
	if cfg.Namespace != "" {
		e = Remap(e, Namespace(cfg.Namespace))
	}
	if cfg.Instrument {
		kind := cfg.Kind
		if kind == "" {
			kind = config.EngineMemory
		}
		e = Instrument(e, kind, o.metrics)
	}

	o.logger.Debug("engine opened", "kind", cfg.Kind, "namespace", cfg.Namespace)
	return &Handle{Engine: e, Base: base}, nil
}

// newS3Client builds an S3 client from cfg and the standard AWS_*
// credential variables.
func newS3Client(cfg config.EngineConfig) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	s3Opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
					SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
					Source:          "nanostore-env",
				}, nil
			})),
	}
	if cfg.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(s3Opts)
}
