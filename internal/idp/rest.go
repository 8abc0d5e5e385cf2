package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/suvilkaushik/easysched-mvp/internal/logger"
)

var ErrNotFound = errors.New("idp: user not found")

const defaultCallTimeout = 15 * time.Second

// RESTClient talks to the provider's admin REST API with a bearer secret.
// Every call carries a bounded timeout; a timed-out call surfaces as an
// ordinary error for the caller to record, never a hang.
type RESTClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewRESTClient(baseURL, secret string) (*RESTClient, error) {
	if baseURL == "" || secret == "" {
		return nil, errors.New("idp: api base url and secret key are required")
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: defaultCallTimeout},
	}, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("idp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("idp: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("idp: read response: %w", err)
	}
	return res.StatusCode, data, nil
}

// decodeUserList tolerates both response envelopes the API has shipped:
// a bare array and an object with a "data" array.
func decodeUserList(data []byte) ([]User, error) {
	var bare []User
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped struct {
		Data []User `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("idp: decode user list: %w", err)
	}
	return wrapped.Data, nil
}

func (c *RESTClient) ListUsers(ctx context.Context, startingAfter string, limit int) ([]User, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if startingAfter != "" {
		q.Set("starting_after", startingAfter)
	}

	status, data, err := c.do(ctx, http.MethodGet, "/users", q, "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("idp: list users: status %d: %s", status, truncate(data))
	}
	return decodeUserList(data)
}

func (c *RESTClient) GetUser(ctx context.Context, id string) (*User, error) {
	status, data, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("idp: get user %s: status %d: %s", id, status, truncate(data))
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("idp: decode user: %w", err)
	}
	return &u, nil
}

func (c *RESTClient) FindByEmail(ctx context.Context, email string) (*User, error) {
	q := url.Values{}
	q.Set("email_address", strings.ToLower(email))
	q.Set("limit", "1")

	status, data, err := c.do(ctx, http.MethodGet, "/users", q, "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("idp: find by email: status %d: %s", status, truncate(data))
	}

	list, err := decodeUserList(data)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// CreateUser provisions a remote user. The API has historically accepted
// several request encodings; on rejection the client walks a short list of
// alternate payload shapes (JSON with a single email field, JSON with an
// email_addresses array, form-encoded) before giving up.
func (c *RESTClient) CreateUser(ctx context.Context, p CreateParams) (*User, error) {
	type jsonAttempt struct {
		label string
		body  map[string]any
	}

	base := map[string]any{
		"username":      p.Username,
		"email_address": p.EmailAddress,
		"password":      p.Password,
	}
	if p.FirstName != "" {
		base["first_name"] = p.FirstName
	}
	if p.LastName != "" {
		base["last_name"] = p.LastName
	}
	if p.PublicMetadata != nil {
		base["public_metadata"] = p.PublicMetadata
	}

	withList := map[string]any{
		"username": p.Username,
		"email_addresses": []map[string]any{
			{"email_address": p.EmailAddress, "verified": true},
		},
		"password": p.Password,
	}
	if p.FirstName != "" {
		withList["first_name"] = p.FirstName
	}
	if p.LastName != "" {
		withList["last_name"] = p.LastName
	}
	if p.PublicMetadata != nil {
		withList["public_metadata"] = p.PublicMetadata
	}

	var lastErr error
	for _, attempt := range []jsonAttempt{
		{label: "email_address", body: base},
		{label: "email_addresses", body: withList},
	} {
		u, err := c.createJSON(ctx, attempt.body)
		if err == nil {
			return u, nil
		}
		lastErr = err
		logger.Warn("idp create attempt rejected", map[string]any{
			"shape": attempt.label,
			"error": err.Error(),
		})
	}

	u, err := c.createForm(ctx, p)
	if err == nil {
		return u, nil
	}
	logger.Warn("idp form-encoded create rejected", map[string]any{
		"error": err.Error(),
	})
	return nil, lastErr
}

func (c *RESTClient) createJSON(ctx context.Context, body map[string]any) (*User, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("idp: encode create body: %w", err)
	}

	status, data, err := c.do(ctx, http.MethodPost, "/users", nil, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return decodeCreated(status, data)
}

func (c *RESTClient) createForm(ctx context.Context, p CreateParams) (*User, error) {
	form := url.Values{}
	form.Set("username", p.Username)
	form.Set("email_address", p.EmailAddress)
	form.Set("password", p.Password)
	if p.FirstName != "" {
		form.Set("first_name", p.FirstName)
	}
	if p.LastName != "" {
		form.Set("last_name", p.LastName)
	}

	status, data, err := c.do(ctx, http.MethodPost, "/users", nil,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	return decodeCreated(status, data)
}

func decodeCreated(status int, data []byte) (*User, error) {
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("idp: create user: status %d: %s", status, truncate(data))
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("idp: decode created user: %w", err)
	}
	if u.ID == "" {
		return nil, errors.New("idp: created user has no id")
	}
	return &u, nil
}

func truncate(data []byte) string {
	const max = 256
	s := string(data)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
