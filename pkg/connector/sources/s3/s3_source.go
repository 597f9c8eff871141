// Package s3 exposes the object listing of an S3 bucket as rows, paging
// with ListObjectsV2 continuation tokens.
package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/clients"
	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/base"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
)

const (
	ConnectorID = "s3"
	Version     = "0.1.0"

	OptionPathStyle = "path_style"
	OptionBucket    = "bucket"
	OptionPrefix    = "prefix"

	// MaxPageSize is the ListObjectsV2 MaxKeys ceiling
	MaxPageSize = 1000
)

// Schema is the fixed column set of an s3 listing table.
var Schema = scan.NewAllowedSchema(
	core.Column{Name: "key", Type: core.TypeText},
	core.Column{Name: "size", Type: core.TypeInt64},
	core.Column{Name: "last_modified", Type: core.TypeTimestamp},
	core.Column{Name: "etag", Type: core.TypeText},
	core.Column{Name: "storage_class", Type: core.TypeText},
)

// ListObjectsAPI is the part of the S3 SDK client the connector calls.
type ListObjectsAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// APIFactory builds the SDK client from scan options.
type APIFactory func(ctx context.Context, o clients.AWSOptions, pathStyle bool, cfg *config.BaseConfig) (ListObjectsAPI, error)

// Option configures an S3Source
type Option func(*settings)

type settings struct {
	newAPI APIFactory
}

// WithAPIFactory replaces the SDK client constructor.
func WithAPIFactory(f APIFactory) Option {
	return func(s *settings) { s.newAPI = f }
}

// Definition describes the s3 connector.
func Definition(opts ...Option) base.Definition {
	s := settings{newAPI: newSDKClient}
	for _, opt := range opts {
		opt(&s)
	}
	return base.Definition{
		ID:          ConnectorID,
		Description: "S3 bucket object listing via ListObjectsV2",
		Version:     Version,
		Schema:      Schema,
		Options: []core.OptionSpec{
			{Name: clients.OptionAWSAccessKeyID, Scope: core.ServerLevel, Required: true},
			{Name: clients.OptionAWSSecretAccessKey, Scope: core.ServerLevel, Required: true},
			{Name: clients.OptionAWSRegion, Scope: core.ServerLevel, Required: true},
			{Name: clients.OptionAWSEndpointURL, Scope: core.ServerLevel, Description: "override the S3 endpoint"},
			{Name: OptionPathStyle, Scope: core.ServerLevel, Description: "use path-style addressing"},
			{Name: OptionBucket, Scope: core.TableLevel, Required: true},
			{Name: OptionPrefix, Scope: core.TableLevel, Description: "only list keys under this prefix"},
		},
		Check:            check,
		CollectionOption: OptionBucket,
		Open:             s.open,
		MaxBatchSize:     MaxPageSize,
	}
}

// S3Source is the s3 foreign-table connector
type S3Source struct {
	*base.BaseConnector
}

// NewS3Source creates an s3 connector
func NewS3Source(cfg *config.BaseConfig, logger *zap.Logger, opts ...Option) *S3Source {
	return &S3Source{BaseConnector: base.NewBaseConnector(Definition(opts...), cfg, logger)}
}

func check(options config.Options, scope core.Scope) error {
	if scope != core.ServerLevel {
		return nil
	}
	if err := clients.CheckEndpointURL(options.Get(clients.OptionAWSEndpointURL, "")); err != nil {
		return err
	}
	_, err := options.Bool(OptionPathStyle, false)
	return err
}

func (s settings) open(ctx context.Context, options config.Options, cfg *config.BaseConfig, logger *zap.Logger) (scan.Client, error) {
	awsOpts, err := clients.AWSOptionsFrom(options)
	if err != nil {
		return nil, err
	}
	pathStyle, err := options.Bool(OptionPathStyle, false)
	if err != nil {
		return nil, err
	}

	api, err := s.newAPI(ctx, awsOpts, pathStyle, cfg)
	if err != nil {
		return nil, err
	}
	prefix := options.Get(OptionPrefix, "")
	logger.Debug("s3 client ready",
		zap.String("region", awsOpts.Region),
		zap.String("prefix", prefix),
		zap.Bool("path_style", pathStyle))
	return NewClient(api, prefix), nil
}

func newSDKClient(ctx context.Context, o clients.AWSOptions, pathStyle bool, cfg *config.BaseConfig) (ListObjectsAPI, error) {
	awsCfg, err := clients.LoadAWSConfig(ctx, o, cfg)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if o.EndpointURL != "" {
			opts.BaseEndpoint = aws.String(o.EndpointURL)
		}
		opts.UsePathStyle = pathStyle
	}), nil
}
