package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/dmfranc/stripemirror/pkg/config"
	"github.com/dmfranc/stripemirror/pkg/logger"
)

var errSecretKeyRequired = errors.New("stripe secret key is required")

// Client wraps Stripe's API client plus the account-level credentials.
type Client struct {
	api            *stripe.Client
	secretKey      string
	publicKey      string
	endpointSecret string
	apiVersion     string
}

// NewClient initializes Stripe once with the configured secrets and pinned API version.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	api := stripe.NewClient(secretKey)
	stripe.Key = secretKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (api version %s)", cfg.APIVersion))
	}

	return &Client{
		api:            api,
		secretKey:      secretKey,
		publicKey:      cfg.PublicKey,
		endpointSecret: strings.TrimSpace(cfg.EndpointSecret),
		apiVersion:     cfg.APIVersion,
	}, nil
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// SigningSecret returns the webhook endpoint secret; empty means signature
// verification is skipped.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.endpointSecret
}

// APIVersion reports the pinned Stripe API version.
func (c *Client) APIVersion() string {
	if c == nil {
		return ""
	}
	return c.apiVersion
}

// ObfuscatedSecretKey masks the account secret so it can appear in error
// matching and logs without leaking the credential.
func (c *Client) ObfuscatedSecretKey() string {
	if c == nil {
		return ""
	}
	return ObfuscateSecretKey(c.secretKey)
}

// ObfuscateSecretKey keeps the last four characters and masks the rest with a
// fixed-width prefix.
func ObfuscateSecretKey(key string) string {
	if len(key) < 4 {
		return strings.Repeat("*", 20)
	}
	return strings.Repeat("*", 20) + key[len(key)-4:]
}

// IsPermissionError reports whether err is Stripe refusing access on behalf of
// a connected account.
func IsPermissionError(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusForbidden
}

// IsMissingResource reports whether err is Stripe's "no such ..." invalid
// request error, e.g. retrieving a customer deleted upstream.
func IsMissingResource(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.HTTPStatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(stripeErr.Msg), "no such")
}

// ErrorBody extracts the raw HTTP body Stripe returned, for durable exception
// records. Falls back to the error text for non-Stripe errors.
func ErrorBody(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.LastResponse != nil {
		return string(stripeErr.LastResponse.RawJSON)
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ErrorMessage returns the Stripe-provided message when available.
func ErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ErrorParam returns the offending parameter name from a Stripe error, if any.
func ErrorParam(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Param
	}
	return ""
}
