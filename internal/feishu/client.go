// Package feishu talks to the Feishu/Lark open platform: tenant access
// token issuance, the token cache built on it, and text message delivery.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://open.feishu.cn/open-apis"

	tokenPath   = "/auth/v3/tenant_access_token/internal"
	messagePath = "/im/v1/messages"

	// ReceiveIDOpenID addresses a message to a user by open_id.
	ReceiveIDOpenID = "open_id"
)

var (
	// ErrEmptyToken is returned when the issuance endpoint reports success
	// but carries no token.
	ErrEmptyToken = errors.New("feishu: empty tenant access token")
	// ErrInvalidExpire is returned when the issued token has no usable lifetime.
	ErrInvalidExpire = errors.New("feishu: invalid token lifetime")
)

// APIError describes a failed platform call, either at the HTTP level
// (Status outside 2xx) or in the response envelope (Code != 0).
type APIError struct {
	Op     string
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("feishu %s: status=%d code=%d msg=%s", e.Op, e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("feishu %s: status=%d body=%s", e.Op, e.Status, e.Msg)
}

// Client is a minimal open-platform API client. It is safe for concurrent use.
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
	Timeout   time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// NewClient creates a platform client.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   base,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		http:      hc,
	}
}

// apiResponse is implemented by every response type through its embedded envelope.
type apiResponse interface {
	apiError(op string, status int) error
}

// envelope is the common response wrapper of open-platform APIs.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type tokenResponse struct {
	envelope
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// TenantAccessToken exchanges the application identity for a tenant
// access token and returns it with its lifetime as reported by the platform.
func (c *Client) TenantAccessToken(ctx context.Context) (string, time.Duration, error) {
	payload := map[string]string{"app_id": c.appID, "app_secret": c.appSecret}

	var r tokenResponse
	if err := c.post(ctx, "tenant token", c.baseURL+tokenPath, "", payload, &r); err != nil {
		return "", 0, err
	}
	if r.TenantAccessToken == "" {
		return "", 0, ErrEmptyToken
	}
	if r.Expire <= 0 {
		return "", 0, fmt.Errorf("%w: expire=%d", ErrInvalidExpire, r.Expire)
	}
	return r.TenantAccessToken, time.Duration(r.Expire) * time.Second, nil
}

// textContent is the platform's content envelope for msg_type "text".
type textContent struct {
	Text string `json:"text"`
}

type sendMessageRequest struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

// SendText posts a text message to receiveID, addressed by receiveIDType
// (for example ReceiveIDOpenID), authenticated with the bearer token.
func (c *Client) SendText(ctx context.Context, token, receiveIDType, receiveID, text string) error {
	content, err := json.Marshal(textContent{Text: text})
	if err != nil {
		return fmt.Errorf("encoding text content: %w", err)
	}

	u := c.baseURL + messagePath + "?" + url.Values{"receive_id_type": {receiveIDType}}.Encode()
	var r envelope
	return c.post(ctx, "send message", u, token, sendMessageRequest{
		ReceiveID: receiveID,
		MsgType:   "text",
		Content:   string(content),
	}, &r)
}

// post sends body as JSON and decodes the envelope-bearing response into out.
func (c *Client) post(ctx context.Context, op, u, token string, body any, out apiResponse) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", op, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// Error bodies usually still carry the envelope.
		if json.Unmarshal(raw, out) == nil {
			if err := out.apiError(op, res.StatusCode); err != nil {
				return err
			}
		}
		return &APIError{Op: op, Status: res.StatusCode, Msg: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return out.apiError(op, res.StatusCode)
}

func (e *envelope) apiError(op string, status int) error {
	if e.Code == 0 {
		return nil
	}
	return &APIError{Op: op, Status: status, Code: e.Code, Msg: e.Msg}
}
