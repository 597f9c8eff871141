package clients

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// OAuth2Config configures the client-credentials grant. Tokens are cached
// and refreshed by the token source before they expire.
type OAuth2Config struct {
	ClientID     string            `json:"client_id"`
	ClientSecret string            `json:"client_secret"`
	TokenURL     string            `json:"token_url"`
	Scopes       []string          `json:"scopes,omitempty"`
	CustomParams map[string]string `json:"custom_params,omitempty"`
}

// Validate checks that the grant can be attempted.
func (c *OAuth2Config) Validate() error {
	if c.ClientID == "" {
		return errors.MissingOption("client_id", "server")
	}
	if c.ClientSecret == "" {
		return errors.MissingOption("client_secret", "server")
	}
	if c.TokenURL == "" {
		return errors.MissingOption("token_url", "server")
	}
	if _, err := url.ParseRequestURI(c.TokenURL); err != nil {
		return errors.InvalidOption("token_url", c.TokenURL, err)
	}
	return nil
}

func (c *OAuth2Config) credentials() *clientcredentials.Config {
	params := url.Values{}
	for k, v := range c.CustomParams {
		params.Set(k, v)
	}
	return &clientcredentials.Config{
		ClientID:       c.ClientID,
		ClientSecret:   c.ClientSecret,
		TokenURL:       c.TokenURL,
		Scopes:         c.Scopes,
		EndpointParams: params,
	}
}

// roundTripper wraps base so every request carries a bearer token. Token
// requests travel over base as well.
func (c *OAuth2Config) roundTripper(base http.RoundTripper, timeout time.Duration) (http.RoundTripper, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tokenClient := &http.Client{Transport: base, Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)
	return &oauth2.Transport{
		Source: c.credentials().TokenSource(ctx),
		Base:   base,
	}, nil
}
