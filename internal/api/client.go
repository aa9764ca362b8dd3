package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/session"
)

// Auth endpoints the refresh recovery must never recurse into.
const (
	loginPath    = "/api/v1/auth/login"
	registerPath = "/api/v1/auth/register"
	refreshPath  = "/api/v1/auth/refresh"
	logoutPath   = "/api/v1/auth/logout"
)

// Client is the authenticated request pipeline for the CloudSync backend.
// It attaches the stored bearer token, transparently refreshes it exactly
// once when a request comes back 401, and rewrites object-storage URLs in
// response bodies from the backend's internal host to the public one.
type Client struct {
	baseURL    string
	store      *session.Store
	httpClient *http.Client
	rewriter   *URLRewriter
}

// NewClient creates a Client for the given server configuration, reading
// and refreshing credentials through store.
func NewClient(cfg model.ServerConfig, store *session.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rewriter: NewURLRewriter(cfg.StorageInternalHost, cfg.StoragePublicHost),
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals the
// JSON response.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put performs an HTTP PUT request with a JSON body and unmarshals the
// JSON response.
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete performs an HTTP DELETE request and unmarshals the JSON response.
func (c *Client) Delete(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

// do is the core pipeline: build the request, attach auth, execute, and
// recover from access-token expiry at most once before decoding.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	status, respBody, err := c.execute(ctx, method, path, payload, c.store.AccessToken())
	if err != nil {
		return err
	}

	if status >= 200 && status < 300 {
		return c.decode(respBody, result)
	}

	if status == http.StatusUnauthorized && path != refreshPath && path != loginPath &&
		c.store.RefreshToken() != "" {
		sess, refreshErr := c.store.Refresh(ctx, c.exchangeRefreshToken)
		if refreshErr != nil {
			return &SessionExpiredError{Err: refreshErr}
		}

		// Resend the original request once with the new token. A second
		// failure propagates; there is no further recovery.
		retryStatus, retryBody, retryErr := c.execute(ctx, method, path, payload, sess.AccessToken)
		if retryErr != nil {
			return retryErr
		}
		if retryStatus >= 200 && retryStatus < 300 {
			return c.decode(retryBody, result)
		}
		return errorFromResponse(retryStatus, retryBody)
	}

	return errorFromResponse(status, respBody)
}

// execute performs a single HTTP round trip and returns the status and
// body. The bearer header is attached only when a token is present, so
// anonymous calls such as login go out bare.
func (c *Client) execute(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// decode applies the storage URL rewrite pass to the response body and
// unmarshals it into result. An empty body decodes to nothing.
func (c *Client) decode(respBody []byte, result any) error {
	if len(respBody) == 0 || result == nil {
		return nil
	}

	rewritten, err := c.rewriter.RewriteJSON(respBody)
	if err != nil {
		return fmt.Errorf("rewriting response body: %w", err)
	}

	if err := json.Unmarshal(rewritten, result); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}

// exchangeRefreshToken performs the refresh endpoint call. It runs inside
// the token store's single-flight guard; a 401 here surfaces as a plain
// api Error, which the guard treats as terminal for the session.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (model.Session, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return model.Session{}, fmt.Errorf("marshaling refresh request: %w", err)
	}

	status, respBody, err := c.execute(ctx, http.MethodPost, refreshPath, payload, c.store.AccessToken())
	if err != nil {
		return model.Session{}, err
	}
	if status < 200 || status >= 300 {
		return model.Session{}, errorFromResponse(status, respBody)
	}

	var sess model.Session
	if err := json.Unmarshal(respBody, &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshaling refresh response: %w", err)
	}
	return sess, nil
}

// errorFromResponse builds an api Error from an error-status response,
// preferring the server-provided message over the generic status text.
func errorFromResponse(status int, respBody []byte) error {
	message := http.StatusText(status)

	if len(respBody) > 0 {
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &body); err == nil {
			if body.Message != "" {
				message = body.Message
			} else if body.Error != "" {
				message = body.Error
			}
		}
	}

	return &Error{StatusCode: status, Message: message}
}
