package api

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/cloudsync/cloudsync/internal/model"
)

// Login authenticates with email and password and persists the returned
// session. The device description identifies this client in the backend's
// session listing, the way a browser sends its user agent.
func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	req := model.LoginRequest{
		Email:      email,
		Password:   password,
		DeviceInfo: deviceInfo(),
	}

	var sess model.Session
	if err := c.Post(ctx, loginPath, req, &sess); err != nil {
		return model.Session{}, err
	}

	if err := c.store.Save(sess); err != nil {
		return model.Session{}, fmt.Errorf("persisting session: %w", err)
	}
	return sess, nil
}

// Register creates a new account and persists the returned session.
func (c *Client) Register(ctx context.Context, email, password, name string) (model.Session, error) {
	req := model.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
	}

	var sess model.Session
	if err := c.Post(ctx, registerPath, req, &sess); err != nil {
		return model.Session{}, err
	}

	if err := c.store.Save(sess); err != nil {
		return model.Session{}, fmt.Errorf("persisting session: %w", err)
	}
	return sess, nil
}

// Logout clears the local session first, then notifies the server on a
// best-effort basis. Local credentials are gone even when the server call
// fails, so the user is always logged out from the client's point of view.
func (c *Client) Logout(ctx context.Context) error {
	refreshToken := c.store.RefreshToken()

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	if refreshToken == "" {
		return nil
	}

	body := map[string]string{"refreshToken": refreshToken}
	if err := c.Post(ctx, logoutPath, body, nil); err != nil {
		// Tokens are already cleared locally; the server will expire the
		// refresh token on its own schedule.
		return nil
	}
	return nil
}

// deviceInfo describes this client for the backend's device tracking.
func deviceInfo() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("cloudsync-cli/%s (%s)", runtime.GOOS, hostname)
}
