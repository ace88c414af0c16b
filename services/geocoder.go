package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ReverseResult is the address a coordinate falls in. Fields the provider
// does not know are nil.
type ReverseResult struct {
	State    *string `json:"state"`
	District *string `json:"district"`
	Taluko   *string `json:"taluko"`
	Village  *string `json:"village"`
	Pincode  *string `json:"pincode"`
}

// Geocoder queries a Nominatim-compatible reverse endpoint.
type Geocoder struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

func NewGeocoder(endpoint, userAgent string) *Geocoder {
	return &Geocoder{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResponse struct {
	Address map[string]string `json:"address"`
}

func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) (*ReverseResult, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("geocoder url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("reverse geocode: decode: %w", err)
	}
	a := body.Address
	return &ReverseResult{
		State:    firstOf(a, "state"),
		District: firstOf(a, "state_district", "county"),
		Taluko:   firstOf(a, "subdistrict"),
		Village:  firstOf(a, "village", "town", "hamlet"),
		Pincode:  firstOf(a, "postcode"),
	}, nil
}

func firstOf(m map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return &v
		}
	}
	return nil
}
