// Package client is a typed wrapper over the article publishing API.
//
// Every operation takes a context, performs exactly one request (plus any
// configured transport retries) and returns exactly one result. Write
// operations require a stored session token and fail before any network
// I/O when none is present.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsdesk/internal/model"
	"newsdesk/internal/session"
)

const defaultTimeout = 30 * time.Second

// Config holds the knobs the transport used to hide: base URL, timeout and
// retry count are all explicit here.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.example.com". Required.
	BaseURL string
	// Timeout bounds each HTTP request. Defaults to 30s. Ignored when
	// HTTPClient is set.
	Timeout time.Duration
	// Retries is the number of additional attempts after a transport
	// failure. Decode failures and server rejections are never retried.
	Retries int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

type Client struct {
	baseURL  string
	http     *http.Client
	sessions session.Store
	logger   *zap.Logger
	retries  int
}

// New builds a client. The session store is injected rather than reached
// for globally, so two clients can hold independent logins.
func New(cfg Config, sessions session.Store) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     httpClient,
		sessions: sessions,
		logger:   logger,
		retries:  cfg.Retries,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a bearer token and stores it. A failed
// login leaves any previously stored token in place, so a typo does not
// log the operator out.
func (c *Client) Login(ctx context.Context, username, password string) error {
	const op = "login"

	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", op, err)
	}

	resp, err := c.do(ctx, op, http.MethodPost, "/login", body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Decodability alone is not trusted: a 401 with a JSON body must not
	// become a successful login.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	if lr.AccessToken == "" {
		return &DecodeError{Op: op, Err: fmt.Errorf("response missing access_token")}
	}

	if err := c.sessions.SetToken(ctx, lr.AccessToken); err != nil {
		return fmt.Errorf("%s: storing token: %w", op, err)
	}

	c.logger.Info("Logged in", zap.String("username", username))
	return nil
}

// Logout discards the stored token. Purely local; the server keeps no
// session state worth revoking.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout: clearing token: %w", err)
	}
	c.logger.Info("Logged out")
	return nil
}

// Articles fetches the article list. No auth required.
func (c *Client) Articles(ctx context.Context) ([]model.Article, error) {
	const op = "fetch articles"

	resp, err := c.do(ctx, op, http.MethodGet, "/articles", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	var articles []model.Article
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return articles, nil
}

// Create submits a new article. Requires a stored token.
func (c *Client) Create(ctx context.Context, draft model.ArticleDraft) error {
	return c.write(ctx, "create article", http.MethodPost, "/articles", draft.Payload())
}

// Update replaces the article with the given id. Requires a stored token.
func (c *Client) Update(ctx context.Context, id string, draft model.ArticleDraft) error {
	return c.write(ctx, "update article", http.MethodPut, "/articles/"+url.PathEscape(id), draft.Payload())
}

// SetStatus flips just the publication status of an article.
func (c *Client) SetStatus(ctx context.Context, id string, status model.ArticleStatus) error {
	path := "/articles/" + url.PathEscape(id) + "/status"
	return c.write(ctx, "update article status", http.MethodPut, path, map[string]model.ArticleStatus{"status": status})
}

// write is the shared path for authenticated mutations: token check first,
// then request, then the 2xx gate. Response bodies are ignored.
func (c *Client) write(ctx context.Context, op, method, path string, payload any) error {
	token, err := c.sessions.Token(ctx)
	if err == session.ErrNoSession {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	} else if err != nil {
		return fmt.Errorf("%s: reading session: %w", op, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", op, err)
	}

	resp, err := c.do(ctx, op, method, path, body, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}

// do issues one request, retrying transport failures up to c.retries times.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, token string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("%s: building request: %w", op, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("X-Request-ID", uuid.NewString())

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.retries {
			c.logger.Warn("Request failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
	}

	return nil, &TransportError{Op: op, Err: lastErr}
}
