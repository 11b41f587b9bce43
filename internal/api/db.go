package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-transit/internal/db"
)

// DBHandler exposes the DuckDB tables behind the dataset service.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(conn *sql.DB) *DBHandler {
	return &DBHandler{db: conn}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tables",
		Method:      "GET",
		Path:        "/api/v1/tables",
		Summary:     "DuckDB tables",
		Tags:        []string{"db"},
	}, h.ListTables)
	huma.Register(api, huma.Operation{
		OperationID: "query",
		Method:      "POST",
		Path:        "/api/v1/query",
		Summary:     "Run a SQL query against the dataset tables",
		Tags:        []string{"db"},
	}, h.Query)
}

// TableInfo describes one table.
type TableInfo struct {
	Name string `json:"name" doc:"Table name" example:"stops"`
	Rows int    `json:"rows" doc:"Row count"`
}

type TablesOutput struct {
	Body struct {
		Tables []TableInfo `json:"tables" doc:"Tables with row counts"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	names, err := db.Tables(ctx, h.db)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}

	out := &TablesOutput{}
	out.Body.Tables = make([]TableInfo, 0, len(names))
	for _, name := range names {
		n, err := db.Count(ctx, h.db, name)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to count "+name, err)
		}
		out.Body.Tables = append(out.Body.Tables, TableInfo{Name: name, Rows: n})
	}
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute" example:"SELECT name, category FROM stops LIMIT 10"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body struct {
		Columns []string         `json:"columns" doc:"Column names"`
		Rows    []map[string]any `json:"rows" doc:"Query results"`
		Count   int              `json:"count" doc:"Number of rows returned"`
	}
}

// Query executes a SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, huma.Error500InternalServerError("Failed to read row", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}

	out := &QueryOutput{}
	out.Body.Columns = columns
	out.Body.Rows = results
	out.Body.Count = len(results)
	return out, nil
}
