// Package apiclient talks to the storefront HTTP API. It backs the catalog, order
// wizard, forum feed and the cardctl command.
package apiclient

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
)

const (
	defaultTimeout    = 15 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 4 << 10
)

// ErrMissingBaseURL is returned by NewClient when no API origin is given.
var ErrMissingBaseURL = errors.New("apiclient: base url is required")

// Error is a non-2xx response. Message carries the server's error message, which for
// gateway and storage failures is the upstream SDK text.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("apiclient: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("apiclient: %d: %s", e.Status, e.Message)
}

// Client issues requests against one storefront origin.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBearerToken sends token on every request. Admin uploads need a Firebase ID token;
// internal seeding needs an OIDC service token.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// NewClient constructs a client for the API served at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Template is one catalog entry as served by GET /api/templates.
type Template struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html"`
	Price           float64   `json:"price"`
	PriceCents      int64     `json:"price_cents"`
	ImageURL        string    `json:"image_url"`
	Category        string    `json:"category"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListTemplates returns the catalog newest first. limit <= 0 lets the server decide.
func (c *Client) ListTemplates(ctx context.Context, limit int) ([]Template, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Templates []Template `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/templates", query, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// GetTemplate fetches one template.
func (c *Client) GetTemplate(ctx context.Context, id string) (Template, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Template{}, errors.New("apiclient: template id is required")
	}
	var tpl Template
	if err := c.do(ctx, http.MethodGet, "/api/templates/"+url.PathEscape(id), nil, nil, nil, &tpl); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// LineItem is one checkout line. UnitAmount is in minor units.
type LineItem struct {
	Currency    string
	ProductName string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutRequest creates a hosted checkout session.
type CheckoutRequest struct {
	Items []LineItem
	// IdempotencyKey makes a resubmission replay the first response.
	IdempotencyKey string
}

// CheckoutSession is the gateway session the shopper is redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type checkoutItemPayload struct {
	PriceData struct {
		Currency    string `json:"currency"`
		ProductData struct {
			Name string `json:"name"`
		} `json:"product_data"`
		UnitAmount int64 `json:"unit_amount"`
	} `json:"price_data"`
	Quantity int64 `json:"quantity"`
}

// CreateCheckoutSession posts the line items to /api/checkout.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	items := make([]checkoutItemPayload, 0, len(req.Items))
	for _, item := range req.Items {
		var p checkoutItemPayload
		p.PriceData.Currency = item.Currency
		p.PriceData.ProductData.Name = item.ProductName
		p.PriceData.UnitAmount = item.UnitAmount
		p.Quantity = item.Quantity
		items = append(items, p)
	}
	headers := http.Header{}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		headers.Set(idempotencyHeader, key)
	}
	var session CheckoutSession
	body := map[string]any{"items": items}
	if err := c.do(ctx, http.MethodPost, "/api/checkout", nil, headers, body, &session); err != nil {
		return CheckoutSession{}, err
	}
	return session, nil
}

// UploadTemplateImage posts a base64 data URL to /api/upload-template and returns the
// public URL.
func (c *Client) UploadTemplateImage(ctx context.Context, templateID, filename, dataURL string) (string, error) {
	body := map[string]string{
		"templateId": templateID,
		"filename":   filename,
		"data":       dataURL,
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/upload-template", nil, nil, body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ForumMessage is one authoritative forum post.
type ForumMessage struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ListForumMessages returns up to limit messages newest first.
func (c *Client) ListForumMessages(ctx context.Context, limit int) ([]ForumMessage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Messages []ForumMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/forum/messages", query, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// CreateForumMessage posts a message. An empty user lets the server apply its default.
func (c *Client) CreateForumMessage(ctx context.Context, user, text string) (ForumMessage, error) {
	body := map[string]string{"text": text}
	if user = strings.TrimSpace(user); user != "" {
		body["user"] = user
	}
	var resp struct {
		Message ForumMessage `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/forum/messages", nil, nil, body, &resp); err != nil {
		return ForumMessage{}, err
	}
	return resp.Message, nil
}

// SetLike records a like or unlike and returns the message's like count afterwards.
func (c *Client) SetLike(ctx context.Context, messageID, action, user string) (int64, error) {
	body := map[string]string{"messageId": messageID, "action": action}
	if user = strings.TrimSpace(user); user != "" {
		body["userName"] = user
	}
	var resp struct {
		OK    bool  `json:"ok"`
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/forum/like", nil, nil, body, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// TemplateSeed is one entry for the internal seed endpoint.
type TemplateSeed struct {
	ID          string  `json:"id,omitempty" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Price       float64 `json:"price" yaml:"price"`
	ImageURL    string  `json:"image_url,omitempty" yaml:"image_url"`
	Category    string  `json:"category,omitempty" yaml:"category"`
}

// SeedTemplates upserts templates through /internal/templates/seed. An empty slice
// asks the server for its built-in seeds.
func (c *Client) SeedTemplates(ctx context.Context, seeds []TemplateSeed) ([]Template, error) {
	var body any
	if len(seeds) > 0 {
		body = map[string]any{"templates": seeds}
	}
	var resp struct {
		Count     int        `json:"count"`
		Templates []Template `json:"templates"`
	}
	if err := c.do(ctx, http.MethodPost, "/internal/templates/seed", nil, nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// ClearSession revokes the signed-in admin's refresh tokens.
func (c *Client) ClearSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/admin/session/clear", nil, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &Error{Status: resp.StatusCode}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Error) > 0 {
		var structured struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		var plain string
		switch {
		case json.Unmarshal(envelope.Error, &structured) == nil:
			apiErr.Code = structured.Code
			apiErr.Message = structured.Message
		case json.Unmarshal(envelope.Error, &plain) == nil:
			apiErr.Message = plain
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
