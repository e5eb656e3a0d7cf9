package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
)

// PostgRESTStore collection contract over a Supabase/PostgREST endpoint.
// Reads are retried by the client; writes never are, so a failed write is reported once
// and the caller decides.
type PostgRESTStore struct {
	reader *resty.Client
	writer *resty.Client
	logger *zap.Logger
}

// NewPostgRESTStore baseURL is the project URL (".../rest/v1" is appended);
// serviceKey is sent as apikey and bearer token.
func NewPostgRESTStore(baseURL, serviceKey string, readRetries int, logger *zap.Logger) *PostgRESTStore {
	base := strings.TrimRight(baseURL, "/") + "/rest/v1"
	newClient := func(retries int) *resty.Client {
		c := resty.New().
			SetBaseURL(base).
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetHeader("apikey", serviceKey).
			SetAuthToken(serviceKey)
		if retries > 0 {
			c.SetRetryCount(retries).
				SetRetryWaitTime(200 * time.Millisecond).
				SetRetryMaxWaitTime(2 * time.Second).
				AddRetryCondition(func(r *resty.Response, err error) bool {
					return err != nil || r.StatusCode() >= 500
				})
		}
		return c
	}
	return &PostgRESTStore{
		reader: newClient(readRetries),
		writer: newClient(0),
		logger: logger,
	}
}

func (s *PostgRESTStore) Select(ctx context.Context, collection string, filter Filter, opts SelectOptions) ([]Row, error) {
	q := filterParams(filter)
	q.Set("select", "*")
	if opts.OrderBy != "" {
		dir := "asc"
		if opts.Desc {
			dir = "desc"
		}
		q.Set("order", opts.OrderBy+"."+dir)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprint(opts.Limit))
	}
	resp, err := s.reader.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q).
		Get("/" + collection)
	return s.decode("select", collection, resp, err)
}

func (s *PostgRESTStore) Insert(ctx context.Context, collection string, rows []Row, opts InsertOptions) ([]Row, error) {
	req := s.writer.R().
		SetContext(ctx).
		SetBody(rows)
	if opts.OnConflict != "" {
		req.SetQueryParam("on_conflict", opts.OnConflict).
			SetHeader("Prefer", "return=representation,resolution=merge-duplicates")
	} else {
		req.SetHeader("Prefer", "return=representation")
	}
	resp, err := req.Post("/" + collection)
	return s.decode("insert", collection, resp, err)
}

func (s *PostgRESTStore) Patch(ctx context.Context, collection string, match Filter, fields Row) ([]Row, error) {
	if len(match) == 0 {
		return nil, apperr.NewValidationError("match", collection, "patch requires a filter")
	}
	resp, err := s.writer.R().
		SetContext(ctx).
		SetQueryParamsFromValues(filterParams(match)).
		SetHeader("Prefer", "return=representation").
		SetBody(fields).
		Patch("/" + collection)
	return s.decode("patch", collection, resp, err)
}

func (s *PostgRESTStore) Delete(ctx context.Context, collection string, match Filter) error {
	if len(match) == 0 {
		return apperr.NewValidationError("match", collection, "delete requires a filter")
	}
	resp, err := s.writer.R().
		SetContext(ctx).
		SetQueryParamsFromValues(filterParams(match)).
		Delete("/" + collection)
	if err != nil {
		return apperr.Unavailable("delete", collection, err)
	}
	if resp.IsError() {
		return apperr.Unavailable("delete", collection, statusError(resp))
	}
	return nil
}

func (s *PostgRESTStore) decode(op, collection string, resp *resty.Response, err error) ([]Row, error) {
	if err != nil {
		s.logger.Warn("PostgREST call failed",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil, apperr.Unavailable(op, collection, err)
	}
	if resp.IsError() {
		s.logger.Warn("PostgREST returned error",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, apperr.Unavailable(op, collection, statusError(resp))
	}
	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return []Row{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, apperr.Unavailable(op, collection, fmt.Errorf("decode response: %w", err))
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

func statusError(resp *resty.Response) error {
	return fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
}

// filterParams eq./is.null query parameters
func filterParams(f Filter) url.Values {
	q := url.Values{}
	for _, col := range sortedKeys(f) {
		v := f[col]
		if v == nil {
			q.Set(col, "is.null")
			continue
		}
		q.Set(col, "eq."+formatValue(v))
	}
	return q
}
