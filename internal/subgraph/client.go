package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"rewardEngine/internal/model"
)

const defaultPageSize = 1000

// QueryError is returned when the subgraph cannot answer a query, either
// because of transport problems or GraphQL errors in the response.
type QueryError struct {
	Op       string
	Status   int
	Messages []string
	Err      error

	transport bool
}

func (e *QueryError) Error() string {
	var b strings.Builder
	b.WriteString("subgraph query ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": http %d", e.Status)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *QueryError) Unwrap() error { return e.Err }

func IsQueryError(err error) bool {
	var target *QueryError
	return errors.As(err, &target)
}

// Retryable reports whether a failed query may succeed when repeated. Only
// transport failures, rate limiting and HTTP 5xx responses qualify; GraphQL
// errors and malformed responses repeat identically.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		return false
	}
	switch {
	case qe.Status == http.StatusTooManyRequests, qe.Status >= http.StatusInternalServerError:
		return true
	case qe.Status != 0, len(qe.Messages) > 0:
		return false
	}
	return qe.transport
}

type Config struct {
	URL      string
	Timeout  time.Duration
	PageSize int
}

// Client queries an Ocean subgraph over GraphQL.
type Client struct {
	http     *resty.Client
	url      string
	pageSize int
	logger   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("subgraph url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	http := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, url: cfg.URL, pageSize: cfg.PageSize, logger: logger}, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs a GraphQL query and returns its data object. Numbers are kept
// as json.Number so amounts keep their exact decimal text.
func (c *Client) Query(ctx context.Context, op, query string, vars map[string]any) (map[string]any, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{Query: query, Variables: vars}).
		Post(c.url)
	if err != nil {
		return nil, &QueryError{Op: op, Err: err, transport: true}
	}
	if resp.IsError() {
		return nil, &QueryError{Op: op, Status: resp.StatusCode()}
	}

	var out response
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, &QueryError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &QueryError{Op: op, Messages: msgs}
	}
	if out.Data == nil {
		return nil, &QueryError{Op: op, Err: fmt.Errorf("response has no data")}
	}
	return out.Data, nil
}

// paginate walks an entity collection ordered by id. query must take $first
// and $lastID variables.
func (c *Client) paginate(ctx context.Context, op, entity, query string, vars map[string]any) ([]model.Record, error) {
	all := make([]model.Record, 0)
	lastID := ""
	for page := 0; ; page++ {
		pageVars := map[string]any{"first": c.pageSize, "lastID": lastID}
		for k, v := range vars {
			pageVars[k] = v
		}
		data, err := c.Query(ctx, op, query, pageVars)
		if err != nil {
			return nil, err
		}
		rawItems, ok := data[entity].([]any)
		if !ok {
			return nil, &QueryError{Op: op, Err: fmt.Errorf("missing %s in response", entity)}
		}
		for _, raw := range rawItems {
			item, ok := raw.(map[string]any)
			if !ok {
				return nil, &QueryError{Op: op, Err: fmt.Errorf("%s item is %T", entity, raw)}
			}
			all = append(all, model.Record(item))
		}
		c.logger.Debug("subgraph page", zap.String("op", op), zap.Int("page", page), zap.Int("items", len(rawItems)))
		if len(rawItems) < c.pageSize {
			return all, nil
		}
		id, _ := rawItems[len(rawItems)-1].(map[string]any)["id"].(string)
		if id == "" || id == lastID {
			return nil, &QueryError{Op: op, Err: fmt.Errorf("pagination stalled at %q", lastID)}
		}
		lastID = id
	}
}
