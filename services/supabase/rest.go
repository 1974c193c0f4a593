package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// QueryBuilder builds and runs a single request against a table. Builders are
// single-use; obtain a fresh one from Client.From for every request.
type QueryBuilder struct {
	client *Client
	table  string
	token  string

	selection string
	filters   url.Values
	order     string
	limit     int
	single    bool
	cached    bool
}

// From starts a query against table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client:    c,
		table:     table,
		selection: "*",
		filters:   url.Values{},
	}
}

// Auth sets the bearer token the request is authorized with. Without it the
// request runs with anonymous rights.
func (q *QueryBuilder) Auth(token string) *QueryBuilder {
	q.token = token
	return q
}

// Select restricts the columns returned.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.selection = columns
	return q
}

// Eq filters on column equality.
func (q *QueryBuilder) Eq(column string, value interface{}) *QueryBuilder {
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

// Order sorts the result by column.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

// Limit caps the number of rows returned.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single requests exactly one object. The query fails with a not-found error
// when no row matches.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Cached lets Get serve the result from the client's short-lived read cache.
// Writes to the same table invalidate it. Never use it on reads whose
// freshness matters, such as polling for a row another actor creates.
func (q *QueryBuilder) Cached() *QueryBuilder {
	q.cached = true
	return q
}

func (q *QueryBuilder) path() string {
	query := url.Values{}
	query.Set("select", q.selection)
	for column, values := range q.filters {
		for _, value := range values {
			query.Add(column, value)
		}
	}
	if q.order != "" {
		query.Set("order", q.order)
	}
	if q.limit > 0 {
		query.Set("limit", strconv.Itoa(q.limit))
	}
	return "/rest/v1/" + q.table + "?" + query.Encode()
}

// Get runs the query and decodes the rows into dest, a pointer to a slice, or
// to a struct when Single was requested.
func (q *QueryBuilder) Get(ctx context.Context, dest interface{}) error {
	path := q.path()

	if q.cached {
		if body, ok := q.client.cache.get(q.table, path); ok {
			return errors.Wrap(json.Unmarshal(body, dest), "decoding cached rows")
		}
	}

	headers := map[string]string{}
	if q.single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}

	resp, err := q.client.doRequest(ctx, http.MethodGet, path, q.token, nil, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if q.cached {
		q.client.cache.put(q.table, path, body)
	}
	if dest == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(body, dest), "decoding rows")
}

// Insert creates rows. When dest is non-nil the created representation is
// decoded into it.
func (q *QueryBuilder) Insert(ctx context.Context, rows interface{}, dest interface{}) error {
	return q.write(ctx, http.MethodPost, rows, dest)
}

// Update patches the rows matching the query's filters. When dest is non-nil
// the updated representation is decoded into it.
func (q *QueryBuilder) Update(ctx context.Context, values interface{}, dest interface{}) error {
	return q.write(ctx, http.MethodPatch, values, dest)
}

// Delete removes the rows matching the query's filters.
func (q *QueryBuilder) Delete(ctx context.Context) error {
	q.client.cache.invalidate(q.table)

	resp, err := q.client.doRequest(ctx, http.MethodDelete, q.path(), q.token, nil, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

func (q *QueryBuilder) write(ctx context.Context, method string, payload interface{}, dest interface{}) error {
	q.client.cache.invalidate(q.table)

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if dest != nil {
		headers["Prefer"] = "return=representation"
		if q.single {
			headers["Accept"] = "application/vnd.pgrst.object+json"
		}
	} else {
		headers["Prefer"] = "return=minimal"
	}

	resp, err := q.client.doRequest(ctx, method, q.path(), q.token, bytes.NewReader(body), headers)
	if err != nil {
		return err
	}
	return decodeJSON(resp, dest)
}
