// Package shopclient is a Go client for the Sweet Shop API. It keeps the
// session token and a local copy of the catalog, so callers get the same
// view an interactive client would: log in once, browse the cached catalog,
// and refresh it after every mutation.
package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	session *Session
	catalog []Sweet
}

type Session struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

type Sweet struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity uint    `json:"quantity"`
}

// SweetUpdate carries a partial update; nil fields are left untouched.
type SweetUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Quantity *uint    `json:"quantity,omitempty"`
}

// APIError is any non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s := c.Session(); s != nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Session returns the current session, or nil before login.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Catalog returns the locally cached catalog from the last Sweets call.
func (c *Client) Catalog() []Sweet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Sweet, len(c.catalog))
	copy(out, c.catalog)
	return out
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) setCatalog(sweets []Sweet) {
	c.mu.Lock()
	c.catalog = sweets
	c.mu.Unlock()
}

// cacheSweet folds one updated record into the cached catalog.
func (c *Client) cacheSweet(s Sweet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.catalog {
		if c.catalog[i].ID == s.ID {
			c.catalog[i] = s
			return
		}
	}
	c.catalog = append(c.catalog, s)
}

func (c *Client) uncacheSweet(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.catalog {
		if c.catalog[i].ID == id {
			c.catalog = append(c.catalog[:i], c.catalog[i+1:]...)
			return
		}
	}
}

func (c *Client) Register(ctx context.Context, username, email, password, role string) (*Session, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	if role != "" {
		body["role"] = role
	}

	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return &s, nil
}

// Logout drops the local session; the server keeps no session state.
func (c *Client) Logout() {
	c.setSession(nil)
}

// Sweets fetches the full catalog and replaces the local cache.
func (c *Client) Sweets(ctx context.Context) ([]Sweet, error) {
	var sweets []Sweet
	if err := c.do(ctx, http.MethodGet, "/api/sweets", nil, &sweets); err != nil {
		return nil, err
	}
	c.setCatalog(sweets)
	return sweets, nil
}

// Search filters by case-insensitive substring on name and/or category.
// Search results do not replace the cached catalog.
func (c *Client) Search(ctx context.Context, name, category string) ([]Sweet, error) {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if category != "" {
		q.Set("category", category)
	}
	path := "/api/sweets/search"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var sweets []Sweet
	if err := c.do(ctx, http.MethodGet, path, nil, &sweets); err != nil {
		return nil, err
	}
	return sweets, nil
}

func (c *Client) AddSweet(ctx context.Context, name, category string, price float64, quantity uint) (*Sweet, error) {
	body := map[string]interface{}{
		"name":     name,
		"category": category,
		"price":    price,
		"quantity": quantity,
	}

	var s Sweet
	if err := c.do(ctx, http.MethodPost, "/api/sweets", body, &s); err != nil {
		return nil, err
	}
	c.cacheSweet(s)
	return &s, nil
}

func (c *Client) UpdateSweet(ctx context.Context, id uint, update SweetUpdate) (*Sweet, error) {
	var s Sweet
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/sweets/%d", id), update, &s); err != nil {
		return nil, err
	}
	c.cacheSweet(s)
	return &s, nil
}

func (c *Client) DeleteSweet(ctx context.Context, id uint) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/sweets/%d", id), nil, nil); err != nil {
		return err
	}
	c.uncacheSweet(id)
	return nil
}

type inventoryResponse struct {
	Message string `json:"message"`
	Sweet   Sweet  `json:"sweet"`
}

func (c *Client) Purchase(ctx context.Context, id uint, quantity uint) (*Sweet, string, error) {
	var body interface{}
	if quantity > 0 {
		body = map[string]uint{"quantity": quantity}
	}

	var resp inventoryResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sweets/%d/purchase", id), body, &resp); err != nil {
		return nil, "", err
	}
	c.cacheSweet(resp.Sweet)
	return &resp.Sweet, resp.Message, nil
}

func (c *Client) Restock(ctx context.Context, id uint, quantity uint) (*Sweet, string, error) {
	var body interface{}
	if quantity > 0 {
		body = map[string]uint{"quantity": quantity}
	}

	var resp inventoryResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sweets/%d/restock", id), body, &resp); err != nil {
		return nil, "", err
	}
	c.cacheSweet(resp.Sweet)
	return &resp.Sweet, resp.Message, nil
}
