// Package device supplies the device-class label and best-effort public IP
// attached to sign-in notifications.
package device

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/chefserve/chef-vendor/internal/authflow"
	"github.com/chefserve/chef-vendor/pkg/logger"
)

// UnknownIP is the sentinel returned when the lookup fails. Callers treat
// it as an ordinary value; the probe never errors.
const UnknownIP = "Unknown IP"

const defaultEndpoint = "https://api.ipify.org?format=json"

type Probe struct {
	endpoint string
	http     *http.Client
}

func NewProbe() *Probe {
	return &Probe{
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// NewProbeWithEndpoint overrides the IP lookup endpoint (tests).
func NewProbeWithEndpoint(endpoint string, httpClient *http.Client) *Probe {
	p := NewProbe()
	if endpoint != "" {
		p.endpoint = endpoint
	}
	if httpClient != nil {
		p.http = httpClient
	}
	return p
}

// DeviceClass maps the running platform to the labels the marketplace's
// audit emails use.
func (p *Probe) DeviceClass() string {
	switch runtime.GOOS {
	case "ios", "darwin":
		return "iOS Device"
	case "android":
		return "Android Device"
	case "windows":
		return "Windows Device"
	case "linux":
		return "Linux Device"
	default:
		return "Unknown Device"
	}
}

type ipResponse struct {
	IP string `json:"ip"`
}

// PublicIP returns the caller's public address, or UnknownIP on any failure.
func (p *Probe) PublicIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return UnknownIP
	}

	resp, err := p.http.Do(req)
	if err != nil {
		logger.DebugContext(ctx, "IP lookup failed", "error", err)
		return UnknownIP
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UnknownIP
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return UnknownIP
	}

	var out ipResponse
	if err := json.Unmarshal(body, &out); err != nil || out.IP == "" {
		return UnknownIP
	}
	return out.IP
}

var _ authflow.DeviceProbe = (*Probe)(nil)
