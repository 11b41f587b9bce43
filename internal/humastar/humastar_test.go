package humastar

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
)

func TestPage(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	p := Page(all, PageInput{Offset: 2, Limit: 2})
	if p.Total != 5 || !slices.Equal(p.Data, []int{3, 4}) {
		t.Errorf("page = %+v", p)
	}

	p = Page(all, PageInput{Offset: 10, Limit: 2})
	if p.Offset != 5 || len(p.Data) != 0 || p.Data == nil {
		t.Errorf("past the end: %+v", p)
	}

	p = Page([]int(nil), PageInput{})
	if p.Limit != 100 || p.Data == nil {
		t.Errorf("defaults: %+v", p)
	}
}

func TestPaginationLinks(t *testing.T) {
	p := Page([]int{1, 2, 3, 4, 5}, PageInput{Offset: 2, Limit: 2})
	links := p.PaginationLinks("/api/v1/stops")
	want := []string{
		`</api/v1/stops?offset=0&limit=2>; rel="first"`,
		`</api/v1/stops?offset=0&limit=2>; rel="prev"`,
		`</api/v1/stops?offset=4&limit=2>; rel="next"`,
		`</api/v1/stops?offset=4&limit=2>; rel="last"`,
	}
	if !slices.Equal(links, want) {
		t.Errorf("links =\n%v\nwant\n%v", links, want)
	}
}

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"linetype":"Tram","interval":"7.5","zoom":12,"swisstopo":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.String("linetype") != "Tram" {
		t.Errorf("linetype = %q", s.String("linetype"))
	}
	if s.Float("interval") != 7.5 || s.Int("interval") != 7 {
		t.Errorf("interval = %v/%d", s.Float("interval"), s.Int("interval"))
	}
	if s.Int("zoom") != 12 || !s.Bool("swisstopo") {
		t.Errorf("zoom/swisstopo = %d/%v", s.Int("zoom"), s.Bool("swisstopo"))
	}
	if s.Has("lat") || s.Float("lat") != 0 {
		t.Error("missing signal reported present")
	}

	empty, err := ParseSignals(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty body: %v %v", empty, err)
	}
	if _, err := (&SignalsInput{RawBody: []byte("{")}).MustParse(); err == nil {
		t.Error("broken JSON accepted")
	}
}

func TestSignalsJSON(t *testing.T) {
	if got := SignalsJSON(nil); got != "{}" {
		t.Errorf("nil = %q", got)
	}
	if got := SignalsJSON(map[string]any{"zoom": 10}); got != `{"zoom":10}` {
		t.Errorf("got %q", got)
	}
}

func TestActionLinkHeader(t *testing.T) {
	a := Action{Rel: "lookup", Href: "/api/v1/editor/click", Method: "POST", Title: "Look up population"}
	want := `</api/v1/editor/click>; rel="lookup"; method="POST"; title="Look up population"`
	if got := a.LinkHeader(); got != want {
		t.Errorf("got %s", got)
	}
}

type itemsBody struct {
	Items []string `json:"items"`
}

func TestLinksAndRoutes(t *testing.T) {
	links := NewLinks()
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	_, api := humatest.New(t, cfg)

	huma.Register(api, huma.Operation{OperationID: "health", Method: "GET", Path: "/health", Tags: []string{"health"}},
		func(ctx context.Context, _ *struct{}) (*struct{ Body itemsBody }, error) {
			return &struct{ Body itemsBody }{}, nil
		})
	huma.Register(api, huma.Operation{OperationID: "list-items", Method: "GET", Path: "/api/v1/items", Tags: []string{"items"}},
		func(ctx context.Context, _ *struct{}) (*struct{ Body itemsBody }, error) {
			return &struct{ Body itemsBody }{Body: itemsBody{Items: []string{"a"}}}, nil
		})
	huma.Register(api, huma.Operation{OperationID: "get-item", Method: "GET", Path: "/api/v1/items/{id}", Tags: []string{"items"}},
		func(ctx context.Context, _ *struct {
			ID string `path:"id"`
		}) (*struct{ Body itemsBody }, error) {
			return &struct{ Body itemsBody }{}, nil
		})
	huma.Register(api, huma.Operation{OperationID: "mount", Method: "GET", Path: "/api/v1/editor/map", Tags: []string{"editor"}},
		func(ctx context.Context, _ *EmptyInput) (*struct{ Body itemsBody }, error) {
			return &struct{ Body itemsBody }{}, nil
		})
	links.Build(api)

	root := strings.Join(links.Root(), "\n")
	if !strings.Contains(root, `</api/v1/items>; rel="items"`) {
		t.Errorf("root links lack items:\n%s", root)
	}
	if strings.Contains(root, "/api/v1/editor/map") {
		t.Errorf("editor route linked from root:\n%s", root)
	}

	resp := api.Get("/api/v1/items/7")
	hdr := strings.Join(resp.Result().Header.Values("Link"), "\n")
	for _, want := range []string{
		`</api/v1/items>; rel="collection"`,
		`</api/v1/items/7>; rel="self"`,
	} {
		if !strings.Contains(hdr, want) {
			t.Errorf("item links lack %s:\n%s", want, hdr)
		}
	}

	routes := Routes(api, "editor")
	if len(routes) != 1 || routes["mount"] != "/api/v1/editor/map" {
		t.Errorf("routes = %v", routes)
	}
	pd := BuildPageData(api, "editor", map[string]any{"zoom": 10})
	if pd.Signals != `{"zoom":10}` || pd.Routes["mount"] == "" {
		t.Errorf("page data = %+v", pd)
	}
}
