package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tidwall/gjson"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryCount = 2
)

// Client is the REST client of the queue backend
type Client struct {
	http *resty.Client
}

var _ interfaces.Backend = (*Client)(nil)

// Option configures Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetryCount sets how many times failed GETs are retried
func WithRetryCount(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.http.SetRetryCount(n)
		}
	}
}

// WithLogger routes the HTTP client's own diagnostics to logger instead of slog.Default
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.http.SetLogger(newRestyLogger(logger))
		}
	}
}

// New creates a backend client for baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetRetryCount(DefaultRetryCount).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			SetLogger(newRestyLogger(nil)).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Only idempotent GETs are retried, on transport errors and 5xx
	c.http.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	return c
}

type accessTokenKey struct{}

// WithAccessToken attaches the admin access token used for authenticated backend calls
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	// Some deployments answer JSON as text/plain
	req := c.http.R().SetContext(ctx).ForceContentType("application/json")
	if token := AccessToken(ctx); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// checkResponse converts transport errors and non-2xx statuses into tagged errors
func checkResponse(resp *resty.Response, err error, path string, facilityID types.FacilityID) error {
	if err != nil {
		return goerr.Wrap(err, "backend request failed",
			goerr.V("path", path),
			goerr.V("facility_id", facilityID),
			goerr.T(model.ErrTagTransportFailure))
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusNotFound && facilityID != "":
		return goerr.Wrap(model.ErrFacilityNotFound, "backend has no such facility",
			goerr.V("path", path),
			goerr.V("facility_id", facilityID))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return goerr.New("backend rejected credentials",
			goerr.V("path", path),
			goerr.V("status", status),
			goerr.T(model.ErrTagUnauthorized))
	case resp.IsError():
		return goerr.New("backend returned error status",
			goerr.V("path", path),
			goerr.V("status", status),
			goerr.V("body", truncate(resp.String(), 512)),
			goerr.T(model.ErrTagTransportFailure))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func historicalParams(q model.HistoricalQuery) map[string]string {
	params := make(map[string]string)
	if q.Year != nil {
		params["ano"] = strconv.Itoa(*q.Year)
	}
	if q.Month != nil {
		params["mes"] = strconv.Itoa(*q.Month)
	}
	if q.Day != nil {
		params["dia"] = strconv.Itoa(*q.Day)
	}
	return params
}

// FetchFacilitySnapshot returns the raw queue object of a facility. Parsing is left to the normalizer.
func (c *Client) FetchFacilitySnapshot(ctx context.Context, id types.FacilityID) ([]byte, error) {
	const path = "/upas/{id}/fila"
	resp, err := c.request(ctx).
		SetPathParam("id", id.String()).
		Get(path)
	if err := checkResponse(resp, err, path, id); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Debug("Fetched facility snapshot",
		"facility_id", id,
		"bytes", len(resp.Body()),
		"duration", resp.Time(),
	)
	return resp.Body(), nil
}

// FetchHistorical returns the classification distribution and waits of a window
func (c *Client) FetchHistorical(ctx context.Context, q model.HistoricalQuery) (*model.RawHistoricalPayload, error) {
	const path = "/upas/{id}/historico"
	var result model.RawHistoricalPayload
	resp, err := c.request(ctx).
		SetPathParam("id", q.FacilityID.String()).
		SetQueryParams(historicalParams(q)).
		SetResult(&result).
		Get(path)
	if err := checkResponse(resp, err, path, q.FacilityID); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchNeighborhoodStats returns the bairro breakdown of a window
func (c *Client) FetchNeighborhoodStats(ctx context.Context, q model.HistoricalQuery) (*model.RawBairroPayload, error) {
	const path = "/upas/{id}/bairros"
	resp, err := c.request(ctx).
		SetPathParam("id", q.FacilityID.String()).
		SetQueryParams(historicalParams(q)).
		Get(path)
	if err := checkResponse(resp, err, path, q.FacilityID); err != nil {
		return nil, err
	}
	return parseBairros(resp.Body())
}

// FetchComparisonTriple returns the last-24h/today/yesterday comparison
func (c *Client) FetchComparisonTriple(ctx context.Context, q model.HistoricalQuery) (*model.RawComparisonPayload, error) {
	const path = "/upas/{id}/comparativo"
	var result model.RawComparisonPayload
	resp, err := c.request(ctx).
		SetPathParam("id", q.FacilityID.String()).
		SetQueryParams(historicalParams(q)).
		SetResult(&result).
		Get(path)
	if err := checkResponse(resp, err, path, q.FacilityID); err != nil {
		return nil, err
	}
	if len(resp.Body()) == 0 {
		return nil, nil
	}
	return &result, nil
}

// ListFacilities returns the facilities known to the backend
func (c *Client) ListFacilities(ctx context.Context) ([]*model.FacilityMetadata, error) {
	const path = "/upas"
	resp, err := c.request(ctx).Get(path)
	if err := checkResponse(resp, err, path, ""); err != nil {
		return nil, err
	}
	return parseFacilities(resp.Body())
}

// Login forwards admin credentials to the backend
func (c *Client) Login(ctx context.Context, credentials model.Credentials) (*model.LoginResult, error) {
	const path = "/auth/login"
	var result model.LoginResult
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(credentials).
		SetResult(&result).
		Post(path)
	if err := checkResponse(resp, err, path, ""); err != nil {
		return nil, err
	}
	return &result, nil
}

// parseBairros accepts {"bairros": [...]} or a bare array
func parseBairros(raw []byte) (*model.RawBairroPayload, error) {
	if len(raw) == 0 {
		return &model.RawBairroPayload{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, goerr.New("bairro payload is not valid JSON", goerr.T(model.ErrTagMalformedPayload))
	}

	root := gjson.ParseBytes(raw)
	rows := root
	if !root.IsArray() {
		rows = root.Get("bairros")
	}

	result := &model.RawBairroPayload{}
	rows.ForEach(func(_, row gjson.Result) bool {
		result.Neighborhoods = append(result.Neighborhoods, model.RawNeighborhood{
			Name:               firstOf(row, "bairro", "nome", "name").String(),
			PatientCount:       int(firstOf(row, "quantidade", "total", "count").Int()),
			AverageWaitMinutes: firstOf(row, "tempoMedioEspera", "averageWaitMinutes").Float(),
		})
		return true
	})
	return result, nil
}

// parseFacilities accepts {"upas": [...]} or a bare array with Portuguese or English keys
func parseFacilities(raw []byte) ([]*model.FacilityMetadata, error) {
	if !gjson.ValidBytes(raw) {
		return nil, goerr.New("facility list is not valid JSON", goerr.T(model.ErrTagMalformedPayload))
	}

	root := gjson.ParseBytes(raw)
	rows := root
	if !root.IsArray() {
		rows = firstOf(root, "upas", "unidades", "data")
	}

	var result []*model.FacilityMetadata
	rows.ForEach(func(_, row gjson.Result) bool {
		f := &model.FacilityMetadata{
			ID:           types.FacilityID(firstOf(row, "id", "upaId").String()),
			Name:         firstOf(row, "nome", "name").String(),
			Address:      firstOf(row, "endereco", "address").String(),
			Neighborhood: firstOf(row, "bairro", "neighborhood").String(),
			Latitude:     firstOf(row, "latitude", "lat").Float(),
			Longitude:    firstOf(row, "longitude", "lng", "lon").Float(),
			Phone:        firstOf(row, "telefone", "phone").String(),
		}
		if f.ID != "" {
			result = append(result, f)
		}
		return true
	})
	return result, nil
}

func firstOf(row gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := row.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
