// Package backend abstracts the remote hosted backend.
//
// This file implements Client over a plain JSON REST transport:
//
//	POST   {base}/rest/{table}        insert, returns {"id": "..."}
//	PATCH  {base}/rest/{table}/{id}   partial update
//	DELETE {base}/rest/{table}/{id}   delete
//	GET    {base}/rest/{table}        select all rows
//
// 4xx responses are decoded into RejectionError (the backend returns
// {"code": ..., "message": ...}); everything else (network errors, 5xx) is
// reported as a plain error and treated as transient by callers. Confirmed
// writes are echoed on the change hub so subscribers observe them like
// realtime pushes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTClient talks to the hosted backend over HTTP. Zero value is not
// usable; construct with NewRESTClient.
type RESTClient struct {
	base string
	http *http.Client
	hub  *Hub
}

// NewRESTClient returns a client for the backend at baseURL. A timeout of 0
// falls back to 10 seconds.
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		hub:  NewHub(),
	}
}

// Insert implements Client.
func (c *RESTClient) Insert(ctx context.Context, table string, row Row) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), row, &out); err != nil {
		return "", err
	}
	c.hub.Publish(Change{Table: table, Type: ChangeInsert, ID: out.ID, Row: row})
	return out.ID, nil
}

// Update implements Client.
func (c *RESTClient) Update(ctx context.Context, table, id string, patch Row) error {
	if err := c.do(ctx, http.MethodPatch, c.rowURL(table, id), patch, nil); err != nil {
		return err
	}
	c.hub.Publish(Change{Table: table, Type: ChangeUpdate, ID: id, Row: patch})
	return nil
}

// Delete implements Client.
func (c *RESTClient) Delete(ctx context.Context, table, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.rowURL(table, id), nil, nil); err != nil {
		return err
	}
	c.hub.Publish(Change{Table: table, Type: ChangeDelete, ID: id})
	return nil
}

// Select implements Client.
func (c *RESTClient) Select(ctx context.Context, table string) ([]Row, error) {
	var out []Row
	if err := c.do(ctx, http.MethodGet, c.tableURL(table), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe implements Client.
func (c *RESTClient) Subscribe(table string, fn ChangeFunc) (cancel func()) {
	return c.hub.Subscribe(table, fn)
}

func (c *RESTClient) tableURL(table string) string {
	return c.base + "/rest/" + url.PathEscape(table)
}

func (c *RESTClient) rowURL(table, id string) string {
	return c.tableURL(table) + "/" + url.PathEscape(id)
}

// do executes one JSON round trip. out may be nil when the response body is
// irrelevant.
func (c *RESTClient) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		rej := &RejectionError{Status: resp.StatusCode, Code: "rejected"}
		var env struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			if env.Code != "" {
				rej.Code = env.Code
			}
			rej.Message = env.Message
		}
		return rej
	default:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
}
