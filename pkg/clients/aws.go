package clients

import (
	"context"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// AWS option names shared by the AWS connectors.
const (
	OptionAWSAccessKeyID     = "aws_access_key_id"
	OptionAWSSecretAccessKey = "aws_secret_access_key"
	OptionAWSSessionToken    = "aws_session_token"
	OptionAWSRegion          = "region"
	OptionAWSEndpointURL     = "endpoint_url"
)

// AWSOptions are the static credentials and placement of an AWS client.
type AWSOptions struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	// EndpointURL overrides the service endpoint (local stacks, proxies)
	EndpointURL string
}

// AWSOptionsFrom reads AWS options set at server level.
func AWSOptionsFrom(options config.Options) (AWSOptions, error) {
	var o AWSOptions
	var err error
	if o.AccessKeyID, err = options.Require(OptionAWSAccessKeyID, core.ServerLevel); err != nil {
		return o, err
	}
	if o.SecretAccessKey, err = options.Require(OptionAWSSecretAccessKey, core.ServerLevel); err != nil {
		return o, err
	}
	if o.Region, err = options.Require(OptionAWSRegion, core.ServerLevel); err != nil {
		return o, err
	}
	o.SessionToken = options.Get(OptionAWSSessionToken, "")
	o.EndpointURL = options.Get(OptionAWSEndpointURL, "")
	if err := CheckEndpointURL(o.EndpointURL); err != nil {
		return o, err
	}
	return o, nil
}

// CheckEndpointURL accepts an empty value or an absolute URL.
func CheckEndpointURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.InvalidOption(OptionAWSEndpointURL, raw, err)
	}
	return nil
}

// LoadAWSConfig builds an SDK config with static credentials. SDK retries
// follow the reliability section of bc.
func LoadAWSConfig(ctx context.Context, o AWSOptions, bc *config.BaseConfig) (aws.Config, error) {
	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(o.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, o.SessionToken)),
	}
	if bc != nil {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(bc.Reliability.RetryAttempts+1))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration").
			WithDetail(errors.DetailOption, OptionAWSRegion)
	}
	return cfg, nil
}
