package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wansing/buzz/util"
	"go.uber.org/zap"
)

// Reason classifies an authentication failure.
type Reason int

const (
	MissingToken Reason = iota + 1
	MalformedToken
	Unreachable       // ping failed or the request could not be sent
	MalformedResponse // the response was no JSON object
	Rejected          // the server did not vouch for the token
)

func (r Reason) String() string {
	switch r {
	case MissingToken:
		return "missing token"
	case MalformedToken:
		return "malformed token"
	case Unreachable:
		return "authentication server unreachable"
	case MalformedResponse:
		return "malformed authentication response"
	case Rejected:
		return "token rejected"
	}
	return "unknown"
}

type Failure struct {
	Reason Reason
	Err    error // optional cause, only logged
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return f.Reason.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Authenticator turns a token into a credential or returns a *Failure.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Credential, error)
}

// maximum size of an authentication server response
const maxResponseSize = 64 * 1024

// Client asks an external authentication server. It holds no per-request state and can be shared.
type Client struct {
	HTTPClient *http.Client
	URI        string // receives POST {"token": ...}
	PingURI    string // must answer GET with 200
	Log        *zap.Logger
	Security   *zap.Logger
}

func NewClient(uri, pingURI string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		URI:        uri,
		PingURI:    pingURI,
		Log:        log,
		Security:   log.Named("security"),
	}
}

func (c *Client) fail(token Token, reason Reason, err error) error {
	c.Security.Warn("authentication failed", zap.String("token", token.Fingerprint()), zap.Stringer("reason", reason), zap.Error(err))
	return &Failure{Reason: reason, Err: err}
}

func (c *Client) ping(ctx context.Context) error {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PingURI, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Authenticate(ctx context.Context, raw string) (*Credential, error) {

	token, err := ParseToken(raw)
	if err != nil {
		c.Security.Warn("authentication failed", zap.Error(err))
		return nil, err
	}

	c.Log.Debug("pinging authentication server", zap.String("uri", c.PingURI))
	if err := c.ping(ctx); err != nil {
		return nil, c.fail(token, Unreachable, err)
	}

	body, err := json.Marshal(map[string]string{"token": string(token)})
	if err != nil {
		return nil, c.fail(token, MalformedToken, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URI, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(token, Unreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.fail(token, Unreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, c.fail(token, Rejected, fmt.Errorf("status %d", resp.StatusCode))
	}

	var content map[string]interface{}
	var dec = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
	dec.UseNumber()
	if err := dec.Decode(&content); err != nil {
		return nil, c.fail(token, MalformedResponse, err)
	}
	if content == nil {
		return nil, c.fail(token, MalformedResponse, fmt.Errorf("status %d, empty body", resp.StatusCode))
	}

	cred, err := CredentialFromJSON(util.SanitizeMap(content))
	if err != nil {
		return nil, c.fail(token, Rejected, err)
	}

	c.Security.Info("authenticated", zap.String("token", token.Fingerprint()), zap.String("id", cred.ID), zap.String("title", string(cred.Title)))
	return cred, nil
}
