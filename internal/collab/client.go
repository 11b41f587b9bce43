// Package collab is the HTTP client for the data collaborators that serve
// population density, transit stops and the user-point echo endpoint.
//
// Every call may come back empty. Callers treat a nil result, or any error,
// as "no data available" rather than a failure to report.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"
)

// ErrEmpty is returned when a collaborator answered without data.
var ErrEmpty = errors.New("collaborator returned no data")

const (
	keyPopulation = "population"
	keyPTData     = "ptdata"
)

// Client talks to the collaborator API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   gcache.Cache
	group   singleflight.Group
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// New creates a client for baseURL, e.g. "http://localhost:8087/api/v1".
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}

	b := gcache.New(opts.CacheSize).LRU()
	if opts.CacheTTL > 0 {
		b = b.Expiration(opts.CacheTTL)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		cache:   b.Build(),
	}
}

// BaseURL returns the collaborator base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Invalidate drops cached collections so the next call refetches.
func (c *Client) Invalidate() {
	c.cache.Purge()
}

// PopulationDensity fetches the population heat points.
func (c *Client) PopulationDensity(ctx context.Context) ([]HeatPoint, error) {
	v, err := c.cached(ctx, keyPopulation, func(ctx context.Context) (any, error) {
		var records []PopulationRecord
		if err := c.getJSON(ctx, "/population", &records); err != nil {
			return nil, err
		}
		points := HeatPoints(records)
		if len(points) == 0 {
			return nil, ErrEmpty
		}
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]HeatPoint), nil
}

// PTData fetches the transit-stop feature collection.
func (c *Client) PTData(ctx context.Context) (*geojson.FeatureCollection, error) {
	v, err := c.cached(ctx, keyPTData, func(ctx context.Context) (any, error) {
		body, err := c.do(ctx, http.MethodGet, "/ptdata", nil)
		if err != nil {
			return nil, err
		}
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return nil, fmt.Errorf("decoding ptdata: %w", err)
		}
		if len(fc.Features) == 0 {
			return nil, ErrEmpty
		}
		return fc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*geojson.FeatureCollection), nil
}

// PostPoints submits the user points and returns the augmented echo.
func (c *Client) PostPoints(ctx context.Context, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, error) {
	payload, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding points: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/points", payload)
	if err != nil {
		return nil, err
	}
	out, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decoding points: %w", err)
	}
	return out, nil
}

// cached serves key from the cache, deduplicating concurrent loads. The
// shared load is not cancelled when the caller that started it goes away.
func (c *Client) cached(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if v, err := c.cache.Get(key); err == nil {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(key, v); err != nil {
			return nil, err
		}
		return v, nil
	})
	return v, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/geo+json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

// PopulationRecord is one entry of the population endpoint. The upstream
// export encodes numbers as strings.
type PopulationRecord struct {
	Lat       Number `json:"lat"`
	Lng       Number `json:"lng"`
	Intensity Number `json:"intensity"`
}

// HeatPoint is a weighted heat layer point: lat, lng, intensity.
type HeatPoint [3]float64

// HeatPoints converts records, skipping those with unparseable fields.
func HeatPoints(records []PopulationRecord) []HeatPoint {
	out := make([]HeatPoint, 0, len(records))
	for _, r := range records {
		if !r.Lat.Valid || !r.Lng.Valid || !r.Intensity.Valid {
			continue
		}
		out = append(out, HeatPoint{r.Lat.Value, r.Lng.Value, r.Intensity.Value})
	}
	return out
}

// Number decodes a JSON number or numeric string.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. Invalid input leaves the number
// invalid instead of failing the whole document.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = Number{}
		return nil
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}
