// Package cognito exposes the users of an AWS Cognito user pool as rows.
// Attribute values are looked up in the user's attribute list first, then
// among the user's top-level fields.
package cognito

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-fdw/pkg/clients"
	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/base"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

const (
	ConnectorID = "cognito"
	Version     = "0.1.0"

	OptionUserPoolID = "user_pool_id"
	OptionObject     = "object"

	// ObjectUsers is the only supported object
	ObjectUsers = "users"

	// MaxPageSize is the ListUsers limit ceiling
	MaxPageSize = 60
)

// Schema is the fixed column set of a cognito users table.
var Schema = scan.NewAllowedSchema(
	core.Column{Name: "username", Type: core.TypeText},
	core.Column{Name: "email", Type: core.TypeText},
	core.Column{Name: "email_verified", Type: core.TypeBool},
	core.Column{Name: "status", Type: core.TypeText},
	core.Column{Name: "enabled", Type: core.TypeBool},
	core.Column{Name: "created_at", Type: core.TypeTimestamp},
	core.Column{Name: "updated_at", Type: core.TypeTimestamp},
	core.Column{Name: "identities", Type: core.TypeJsonb},
)

// ListUsersAPI is the part of the Cognito SDK client the connector calls.
type ListUsersAPI interface {
	ListUsers(ctx context.Context, params *cognitoidentityprovider.ListUsersInput,
		optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error)
}

// APIFactory builds the SDK client from scan options.
type APIFactory func(ctx context.Context, o clients.AWSOptions, cfg *config.BaseConfig) (ListUsersAPI, error)

// Option configures a CognitoSource
type Option func(*settings)

type settings struct {
	newAPI APIFactory
}

// WithAPIFactory replaces the SDK client constructor.
func WithAPIFactory(f APIFactory) Option {
	return func(s *settings) { s.newAPI = f }
}

// Definition describes the cognito connector.
func Definition(opts ...Option) base.Definition {
	s := settings{newAPI: newSDKClient}
	for _, opt := range opts {
		opt(&s)
	}
	return base.Definition{
		ID:          ConnectorID,
		Description: "AWS Cognito user pool users via ListUsers",
		Version:     Version,
		Schema:      Schema,
		Options: []core.OptionSpec{
			{Name: clients.OptionAWSAccessKeyID, Scope: core.ServerLevel, Required: true},
			{Name: clients.OptionAWSSecretAccessKey, Scope: core.ServerLevel, Required: true},
			{Name: clients.OptionAWSRegion, Scope: core.ServerLevel, Required: true},
			{Name: OptionUserPoolID, Scope: core.ServerLevel, Required: true},
			{Name: clients.OptionAWSEndpointURL, Scope: core.ServerLevel, Description: "override the Cognito endpoint"},
			{Name: OptionObject, Scope: core.TableLevel, Required: true, Description: "must be users"},
		},
		Check:            check,
		CollectionOption: OptionObject,
		Open:             s.open,
		MaxBatchSize:     MaxPageSize,
	}
}

// CognitoSource is the cognito foreign-table connector
type CognitoSource struct {
	*base.BaseConnector
}

// NewCognitoSource creates a cognito connector
func NewCognitoSource(cfg *config.BaseConfig, logger *zap.Logger, opts ...Option) *CognitoSource {
	return &CognitoSource{BaseConnector: base.NewBaseConnector(Definition(opts...), cfg, logger)}
}

func check(options config.Options, scope core.Scope) error {
	switch scope {
	case core.ServerLevel:
		return clients.CheckEndpointURL(options.Get(clients.OptionAWSEndpointURL, ""))
	case core.TableLevel:
		return checkObject(options.Get(OptionObject, ""))
	}
	return nil
}

func checkObject(object string) error {
	if object != ObjectUsers {
		return errors.InvalidOption(OptionObject, object, nil).
			WithDetail(errors.DetailAllowed, []string{ObjectUsers})
	}
	return nil
}

func (s settings) open(ctx context.Context, options config.Options, cfg *config.BaseConfig, logger *zap.Logger) (scan.Client, error) {
	awsOpts, err := clients.AWSOptionsFrom(options)
	if err != nil {
		return nil, err
	}
	poolID, err := options.Require(OptionUserPoolID, core.ServerLevel)
	if err != nil {
		return nil, err
	}
	if err := checkObject(options.Get(OptionObject, "")); err != nil {
		return nil, err
	}

	api, err := s.newAPI(ctx, awsOpts, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("cognito client ready",
		zap.String("region", awsOpts.Region),
		zap.String("user_pool_id", poolID))
	return NewClient(api, poolID), nil
}

func newSDKClient(ctx context.Context, o clients.AWSOptions, cfg *config.BaseConfig) (ListUsersAPI, error) {
	awsCfg, err := clients.LoadAWSConfig(ctx, o, cfg)
	if err != nil {
		return nil, err
	}
	return cognitoidentityprovider.NewFromConfig(awsCfg, func(opts *cognitoidentityprovider.Options) {
		if o.EndpointURL != "" {
			opts.BaseEndpoint = aws.String(o.EndpointURL)
		}
	}), nil
}
