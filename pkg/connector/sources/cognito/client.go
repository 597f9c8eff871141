package cognito

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// Client pages through a user pool with ListUsers. The pagination token of
// each response is the continuation token.
type Client struct {
	api        ListUsersAPI
	userPoolID string
}

// NewClient creates a client for one user pool
func NewClient(api ListUsersAPI, userPoolID string) *Client {
	return &Client{api: api, userPoolID: userPoolID}
}

// Fetch implements scan.Client
func (c *Client) Fetch(ctx context.Context, req scan.FetchRequest) (*scan.Page, error) {
	limit := req.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	input := &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(c.userPoolID),
		Limit:      aws.Int32(int32(limit)),
	}
	if token := tokenString(req.Token); token != "" {
		input.PaginationToken = aws.String(token)
	}

	out, err := c.api.ListUsers(ctx, input)
	if err != nil {
		return nil, classify(err)
	}

	records := make([]scan.Record, 0, len(out.Users))
	for _, u := range out.Users {
		records = append(records, userRecord(u))
	}
	page := &scan.Page{Records: records}
	if token := aws.ToString(out.PaginationToken); token != "" {
		page.Next = token
	}
	return page, nil
}

func tokenString(t scan.Token) string {
	switch v := t.(type) {
	case string:
		return v
	case *string:
		return aws.ToString(v)
	default:
		return ""
	}
}

// userRecord exposes a user's attributes, then its top-level fields.
func userRecord(u types.UserType) scan.AttributeRecord {
	attrs := make([]scan.Attribute, 0, len(u.Attributes))
	for _, a := range u.Attributes {
		attrs = append(attrs, scan.Attribute{Name: aws.ToString(a.Name), Value: a.Value})
	}
	fields := scan.FlatRecord{
		"username":   u.Username,
		"enabled":    u.Enabled,
		"created_at": u.UserCreateDate,
		"updated_at": u.UserLastModifiedDate,
	}
	if u.UserStatus != "" {
		fields["status"] = string(u.UserStatus)
	}
	return scan.AttributeRecord{Attributes: attrs, Fields: fields}
}

// classify maps SDK failures onto transport error types.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		errType := errors.ErrorTypeClient
		switch apiErr.ErrorCode() {
		case "NotAuthorizedException", "UnrecognizedClientException", "InvalidSignatureException":
			errType = errors.ErrorTypeAuthentication
		case "ResourceNotFoundException":
			errType = errors.ErrorTypeNotFound
		case "TooManyRequestsException":
			errType = errors.ErrorTypeRateLimit
		case "InternalErrorException":
			errType = errors.ErrorTypeConnection
		}
		return errors.Wrap(err, errType, "cognito ListUsers failed").
			WithDetail("error_code", apiErr.ErrorCode())
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "cognito ListUsers failed")
}
