package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageInput is the shared offset/limit query.
type PageInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

// PageBody is a paginated response envelope.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Page slices all according to in.
func Page[T any](all []T, in PageInput) PageBody[T] {
	limit := in.Limit
	if limit <= 0 {
		limit = 100
	}
	start := min(max(in.Offset, 0), len(all))
	end := min(start+limit, len(all))
	data := all[start:end]
	if data == nil {
		data = []T{}
	}
	return PageBody[T]{Total: len(all), Offset: start, Limit: limit, Data: data}
}

// PaginationLinks returns first, prev, next and last links.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, basePath, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := max(((p.Total-1)/p.Limit)*p.Limit, 0)
	return append(links, link(last, "last"))
}
