package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// RESTClient implements Directory against the directory's HTTP API.
type RESTClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTClient constructs a RESTClient for the given base URL. The token is
// sent as a bearer credential on every request.
func NewRESTClient(baseURL, token string) (*RESTClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("directory base url is required")
	}
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

type createIdentityRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type createIdentityResponse struct {
	ID string `json:"id"`
}

// Create reserves an identity in the directory.
func (c *RESTClient) Create(ctx context.Context, identity Identity, password string) (Identity, error) {
	body, err := json.Marshal(createIdentityRequest{
		Username: identity.Username,
		Email:    identity.Email,
		Name:     identity.Name,
		Password: password,
	})
	if err != nil {
		return Identity{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/identities", bytes.NewReader(body))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return Identity{}, ErrUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return Identity{}, ErrConflict
	case resp.StatusCode >= 500:
		return Identity{}, ErrUnavailable
	case resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK:
		return Identity{}, fmt.Errorf("directory: create identity: unexpected status %d", resp.StatusCode)
	}

	var created createIdentityResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Identity{}, fmt.Errorf("directory: decode create response: %w", err)
	}
	identity.ID = created.ID
	return identity, nil
}

// Delete removes an identity from the directory.
func (c *RESTClient) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/identities/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return ErrUnavailable
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("directory: delete identity: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
