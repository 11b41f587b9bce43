// Package swisstopo looks up population statistics for a map position via
// the geo.admin.ch identify and htmlPopup services.
package swisstopo

import (
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

	"github.com/PuerkitoBio/goquery"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-transit/internal/geo"
)

// Placeholder is shown in the info panel when no lookup result is available.
const Placeholder = "Click on a tile to display info"

// ErrNoFeature is returned when the identify service found nothing at the
// clicked position.
var ErrNoFeature = errors.New("no feature at position")

// Options configures a Client.
type Options struct {
	IdentifyURL string
	PopupURL    string
	Layer       string
	TimeInstant int
	Lang        string
	Timeout     time.Duration
}

// Client queries the geo.admin.ch services.
type Client struct {
	opts Options
	http *http.Client
}

// New creates a lookup client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	return &Client{opts: opts, http: &http.Client{Timeout: opts.Timeout}}
}

// Info is the result of a position lookup.
type Info struct {
	ID       string        `json:"id" doc:"Feature id of the statistics cell"`
	Position geo.Projected `json:"position" doc:"Clicked position in LV95"`
	HTML     string        `json:"html" doc:"Sanitised popup HTML"`
	Text     string        `json:"text" doc:"Popup text content"`
}

// Lookup projects p (lng, lat) to LV95, identifies the feature there and
// fetches its popup.
func (c *Client) Lookup(ctx context.Context, p orb.Point) (Info, error) {
	pos := geo.ToLV95(p)
	id, err := c.Identify(ctx, pos)
	if err != nil {
		return Info{}, err
	}
	raw, err := c.Popup(ctx, id, pos)
	if err != nil {
		return Info{}, err
	}
	html, text, err := Sanitize(raw)
	if err != nil {
		return Info{}, fmt.Errorf("parsing popup: %w", err)
	}
	return Info{ID: id, Position: pos, HTML: html, Text: text}, nil
}

// IdentifyURL builds the identify request for pos.
func (c *Client) IdentifyURL(pos geo.Projected) string {
	q := url.Values{}
	q.Set("geometry", coord(pos))
	q.Set("geometryFormat", "geojson")
	q.Set("geometryType", "esriGeometryPoint")
	q.Set("lang", c.opts.Lang)
	q.Set("layers", "all:"+c.opts.Layer)
	q.Set("limit", "10")
	q.Set("returnGeometry", "true")
	q.Set("sr", strconv.Itoa(geo.LV95))
	if c.opts.TimeInstant > 0 {
		q.Set("timeInstant", strconv.Itoa(c.opts.TimeInstant))
	}
	q.Set("tolerance", "0")
	return c.opts.IdentifyURL + "?" + q.Encode()
}

// PopupURL builds the htmlPopup request for feature id at pos.
func (c *Client) PopupURL(id string, pos geo.Projected) string {
	q := url.Values{}
	q.Set("coord", coord(pos))
	q.Set("lang", c.opts.Lang)
	q.Set("tolerance", "0")
	q.Set("sr", strconv.Itoa(geo.LV95))
	return fmt.Sprintf("%s/%s/%s/htmlPopup?%s",
		strings.TrimRight(c.opts.PopupURL, "/"), c.opts.Layer, url.PathEscape(id), q.Encode())
}

type identifyResponse struct {
	Results []struct {
		ID json.RawMessage `json:"id"`
	} `json:"results"`
}

// Identify returns the id of the first feature at pos.
func (c *Client) Identify(ctx context.Context, pos geo.Projected) (string, error) {
	body, err := c.get(ctx, c.IdentifyURL(pos))
	if err != nil {
		return "", err
	}
	var resp identifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding identify response: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", ErrNoFeature
	}
	id := strings.Trim(string(resp.Results[0].ID), `"`)
	if id == "" || id == "null" {
		return "", ErrNoFeature
	}
	return id, nil
}

// Popup fetches the raw popup HTML for feature id.
func (c *Client) Popup(ctx context.Context, id string, pos geo.Projected) (string, error) {
	body, err := c.get(ctx, c.PopupURL(id, pos))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swisstopo: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Sanitize strips active content from popup HTML and returns the cleaned
// markup together with its collapsed text.
func Sanitize(raw string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", "", err
	}
	doc.Find("script, style, iframe, object, embed").Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			attrs := node.Attr[:0]
			for _, a := range node.Attr {
				if strings.HasPrefix(strings.ToLower(a.Key), "on") {
					continue
				}
				if strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
					continue
				}
				attrs = append(attrs, a)
			}
			node.Attr = attrs
		}
	})

	body := doc.Find("body")
	html, err := body.Html()
	if err != nil {
		return "", "", err
	}
	text := strings.Join(strings.Fields(body.Text()), " ")
	return strings.TrimSpace(html), text, nil
}

func coord(pos geo.Projected) string {
	return strconv.FormatFloat(pos.E, 'f', 2, 64) + "," + strconv.FormatFloat(pos.N, 'f', 2, 64)
}
