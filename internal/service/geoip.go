package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPGeoProvider resolves IPs against an ip-api compatible endpoint.
// Private and unparsable addresses resolve to nil without hitting the
// network.
type HTTPGeoProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHTTPGeoProvider(baseURL string) *HTTPGeoProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://ip-api.com/json"
	}
	return &HTTPGeoProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type geoResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
}

func (p *HTTPGeoProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() {
		return nil, nil
	}

	url := fmt.Sprintf("%s/%s?fields=status,country,city", p.BaseURL, parsed.String())
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		return nil, fmt.Errorf("geo lookup failed with status %d", response.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Status != "success" || body.Country == "" {
		return nil, nil
	}
	return &Location{Country: body.Country, City: body.City}, nil
}
