package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chefserve/chef-vendor/internal/authflow"
	"github.com/google/go-querystring/query"
)

const defaultTimeout = 15 * time.Second

// Client is the HTTP implementation of authflow.AuthAPI against the
// chef-vendor auth service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithHTTP injects a custom http.Client (tests, proxies).
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	c := NewClient(baseURL)
	if httpClient != nil {
		c.http = httpClient
	}
	return c
}

type checkUserParams struct {
	Phone string `url:"phone"`
}

type checkUserResponse struct {
	Exists bool `json:"exists"`
}

func (c *Client) CheckUser(ctx context.Context, phone string) (bool, error) {
	params, err := query.Values(checkUserParams{Phone: phone})
	if err != nil {
		return false, fmt.Errorf("encoding check-user params: %w", err)
	}

	var out checkUserResponse
	if err := c.get(ctx, "/v1/auth/check-user?"+params.Encode(), &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

type loginRequest struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func (c *Client) Login(ctx context.Context, phone string) (*authflow.AccountResult, error) {
	var out authflow.AccountResult
	if err := c.post(ctx, "/v1/auth/login", loginRequest{Phone: phone, Role: authflow.RoleVendor}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, params authflow.RegisterParams) (*authflow.AccountResult, error) {
	var out authflow.AccountResult
	if err := c.post(ctx, "/v1/auth/register", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type sendOtpRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type sendOtpResponse struct {
	Code string `json:"code"`
}

func (c *Client) SendOtp(ctx context.Context, channel authflow.Channel, identifier string) (string, error) {
	req := sendOtpRequest{}
	if channel == authflow.ChannelEmail {
		req.Email = identifier
	} else {
		req.Phone = identifier
	}

	var out sendOtpResponse
	if err := c.post(ctx, "/v1/auth/send-otp", req, &out); err != nil {
		return "", err
	}
	if out.Code == "" {
		return "", fmt.Errorf("auth service returned an empty code")
	}
	return out.Code, nil
}

type loginNotifyRequest struct {
	Email  string `json:"email"`
	IP     string `json:"ip"`
	Device string `json:"device"`
}

type registerNotifyRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	IP     string `json:"ip"`
	Device string `json:"device"`
}

type notifyResponse struct {
	Success bool `json:"success"`
}

func (c *Client) SendLoginNotification(ctx context.Context, email, ip, device string) error {
	var out notifyResponse
	if err := c.post(ctx, "/v1/auth/notify/login", loginNotifyRequest{Email: email, IP: ip, Device: device}, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("auth service declined the login notification")
	}
	return nil
}

func (c *Client) SendRegisterNotification(ctx context.Context, email, name, ip, device string) error {
	var out notifyResponse
	if err := c.post(ctx, "/v1/auth/notify/register", registerNotifyRequest{Email: email, Name: name, IP: ip, Device: device}, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("auth service declined the register notification")
	}
	return nil
}

// Compile-time check that Client satisfies the flow's port.
var _ authflow.AuthAPI = (*Client)(nil)

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling auth service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading auth service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("auth service: %s (%s)", errResp.Error, errResp.Code)
		}
		return fmt.Errorf("auth service: unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding auth service response: %w", err)
	}
	return nil
}
