package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// Client lists one bucket. The collection of each fetch is the bucket name.
type Client struct {
	api    ListObjectsAPI
	prefix string
}

// NewClient creates a listing client restricted to prefix
func NewClient(api ListObjectsAPI, prefix string) *Client {
	return &Client{api: api, prefix: prefix}
}

// Fetch implements scan.Client
func (c *Client) Fetch(ctx context.Context, req scan.FetchRequest) (*scan.Page, error) {
	limit := req.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(req.Collection),
		MaxKeys: aws.Int32(int32(limit)),
	}
	if c.prefix != "" {
		input.Prefix = aws.String(c.prefix)
	}
	if token, ok := req.Token.(string); ok && token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := c.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, classify(err, req.Collection)
	}

	records := make([]scan.Record, 0, len(out.Contents))
	for _, obj := range out.Contents {
		records = append(records, objectRecord(obj))
	}
	page := &scan.Page{Records: records}
	if aws.ToBool(out.IsTruncated) {
		if token := aws.ToString(out.NextContinuationToken); token != "" {
			page.Next = token
		}
	}
	return page, nil
}

func objectRecord(obj types.Object) scan.FlatRecord {
	rec := scan.FlatRecord{
		"key":           obj.Key,
		"size":          obj.Size,
		"last_modified": obj.LastModified,
		"etag":          obj.ETag,
	}
	if obj.StorageClass != "" {
		rec["storage_class"] = string(obj.StorageClass)
	}
	return rec
}

func classify(err error, bucket string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		errType := errors.ErrorTypeClient
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			errType = errors.ErrorTypeAuthentication
		case "NoSuchBucket":
			errType = errors.ErrorTypeNotFound
		case "SlowDown", "Throttling":
			errType = errors.ErrorTypeRateLimit
		case "InternalError", "ServiceUnavailable":
			errType = errors.ErrorTypeConnection
		}
		return errors.Wrap(err, errType, "s3 ListObjectsV2 failed").
			WithDetail("error_code", apiErr.ErrorCode()).
			WithDetail(errors.DetailCollection, bucket)
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "s3 ListObjectsV2 failed").
		WithDetail(errors.DetailCollection, bucket)
}
