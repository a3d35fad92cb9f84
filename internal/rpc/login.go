// Package rpc implements the non-interactive (certificate) login call that
// exchanges an account's API app key and client certificate for a session
// token — the one piece of the request/response Betting/Account APIs this
// module needs, since everything else (order placement, market catalogue,
// account statements) is explicitly out of scope. The returned client
// satisfies supervisor.SessionProvider so the supervisor can re-authenticate
// whenever its cached token goes stale.
package rpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// LoginResponse is the non-interactive login endpoint's JSON body.
type LoginResponse struct {
	SessionToken string `json:"sessionToken"`
	LoginStatus  string `json:"loginStatus"`
}

// Config configures the login client.
type Config struct {
	// Endpoint is the full certificate-login URL, e.g.
	// "https://identitysso-cert.betfair.com/api/certlogin".
	Endpoint string
	AppKey   string
	Username string
	Password string
	// Cert is the client certificate Betfair's login endpoint requires for
	// non-interactive (certificate) login.
	Cert tls.Certificate
	// Timeout bounds a single login call.
	Timeout time.Duration
}

// Client performs certificate login against the Betfair identity service.
type Client struct {
	http *resty.Client
	cfg  Config
}

// NewClient builds a login client with the account's client certificate
// installed for mutual TLS, configuring one shared resty.Client with
// auth/timeout/retry baked in at construction.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("X-Application", cfg.AppKey).
		SetHeader("Accept", "application/json").
		SetTLSClientConfig(&tls.Config{Certificates: []tls.Certificate{cfg.Cert}})

	return &Client{http: httpClient, cfg: cfg}
}

// Authenticate performs the login call and returns the session token,
// satisfying supervisor.SessionProvider.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	var result LoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.cfg.Username,
			"password": c.cfg.Password,
		}).
		SetResult(&result).
		Post("")
	if err != nil {
		return "", fmt.Errorf("rpc: login request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("rpc: login: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.LoginStatus != "SUCCESS" {
		return "", fmt.Errorf("rpc: login rejected: status=%s", result.LoginStatus)
	}
	if result.SessionToken == "" {
		return "", fmt.Errorf("rpc: login succeeded but returned no session token")
	}
	return result.SessionToken, nil
}
