package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPoint is the path that links to every collection.
const EntryPoint = "/health"

// Links holds RFC 8288 Link header values keyed by operation path.
type Links struct {
	mu    sync.RWMutex
	byOp  map[string][]string
	entry string
}

// NewLinks returns an empty link set. Its Transformer can be installed in
// the API config before any route exists; Build fills it in afterwards.
func NewLinks() *Links {
	return &Links{byOp: map[string][]string{}, entry: EntryPoint}
}

// BuildLinks derives links from the registered operations. Call after all
// routes are registered.
func BuildLinks(api huma.API) *Links {
	l := NewLinks()
	l.Build(api)
	return l
}

// Build replaces the links with those derived from api. Operations tagged
// "editor" (Datastar SSE) are skipped.
func (l *Links) Build(api huma.API) {
	l.mu.Lock()
	l.byOp = map[string][]string{}
	l.mu.Unlock()
	oapi := api.OpenAPI()

	var collections, items []string
	for p, pi := range oapi.Paths {
		if hasTag(primaryTags(pi), "editor") {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	sort.Strings(collections)
	sort.Strings(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
		}
	}
	for _, coll := range collections {
		if coll == l.entry {
			continue
		}
		l.add(coll, l.entry, "up")
		l.add(l.entry, coll, lastSegment(coll))
	}
	l.add(l.entry, "/openapi.json", "service-desc")
	l.add(l.entry, "/docs", "service-doc")

	for _, p := range append(collections, items...) {
		if ref := responseSchema(oapi.Paths[p]); ref != "" {
			l.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}
}

// For returns the static links of an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.byOp[opPath]...)
}

// Root returns the entry point links, for handlers outside Huma.
func (l *Links) Root() []string {
	return l.For(l.entry)
}

// Transformer injects the links, a self link for item paths, pagination
// links for Pager bodies and action links for Actor bodies.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range l.byOp[from] {
		if existing == val {
			return
		}
	}
	l.byOp[from] = append(l.byOp[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// responseSchema returns the component name of a GET success body.
func responseSchema(pi *huma.PathItem) string {
	if pi == nil || pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return lastSegment(mt.Schema.Ref)
			}
		}
	}
	return ""
}
