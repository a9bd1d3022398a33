package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"campusguard/models"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// NominatimGeocoder resolves addresses against the OpenStreetMap Nominatim
// API. All lookups are best-effort; callers treat failures as "no address".
type NominatimGeocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

func NewNominatimGeocoder() *NominatimGeocoder {
	return &NominatimGeocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    nominatimBaseURL,
		userAgent:  "campusguard/1.0",
	}
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	endpoint := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f", g.baseURL, lat, lng)

	var result struct {
		DisplayName string `json:"display_name"`
	}
	if err := g.getJSON(ctx, endpoint, &result); err != nil {
		return "", err
	}
	return result.DisplayName, nil
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*models.GeoPoint, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.baseURL, url.QueryEscape(address))

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := g.getJSON(ctx, endpoint, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no match for address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, err
	}

	return &models.GeoPoint{Latitude: lat, Longitude: lng}, nil
}

func (g *NominatimGeocoder) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
