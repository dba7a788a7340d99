package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
)

const authEndpoint = "/api/admins/auth-with-password"

// Session exchanges admin credentials for a bearer token. The token is held
// only for the lifetime of this value and refreshed whenever a caller
// invalidates it; re-authentication is idempotent and safe to repeat, so a
// failed exchange is never cached as permanently failed.
type Session struct {
	http     *http.Client
	baseURL  string
	email    string
	password string
	timeout  time.Duration

	mu    sync.Mutex
	token string
}

func NewSession(httpClient *http.Client, baseURL, email, password string, timeout time.Duration) *Session {
	return &Session{
		http:     httpClient,
		baseURL:  baseURL,
		email:    email,
		password: password,
		timeout:  timeout,
	}
}

// Token returns the current bearer token, authenticating first if needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	token, err := s.authenticate(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return token, nil
}

// Invalidate drops the cached token so the next Token call re-authenticates.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *Session) authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"identity": s.email,
		"password": s.password,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode credentials")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.baseURL+authEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store auth call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read auth response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := decodeAPIError(resp.StatusCode, authEndpoint, raw)
		return "", pkgerrors.Wrap(pkgerrors.CodeBackendAuth, apiErr, "admin credential exchange failed")
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeBackendAuth, err, "decode auth response")
	}
	if payload.Token == "" {
		return "", pkgerrors.Wrap(pkgerrors.CodeBackendAuth, fmt.Errorf("empty token in auth response"), "admin credential exchange failed")
	}
	return payload.Token, nil
}
