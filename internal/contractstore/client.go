// Package contractstore reads contracts and workers from the HR REST backend.
package contractstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/contract"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/httpclient"
	"github.com/tphakala/contractwatch/internal/logger"
)

// Endpoint labels used in logs and metrics
const (
	EndpointContracts = "contracts"
	EndpointWorkers   = "workers"
)

// maxBodyBytes caps a list response
const maxBodyBytes = 32 << 20

// Snapshot is one consistent read of the backend
type Snapshot struct {
	Contracts []contract.Contract
	Workers   []contract.Worker
	FetchedAt time.Time
	// Skipped counts records dropped because they could not be normalized
	Skipped int
}

// Source is what the pipeline and the API need from the backend
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Contracts(ctx context.Context) ([]contract.Contract, error)
	Directory() *WorkerDirectory
}

var _ Source = (*Client)(nil)

// RequestObserver is told about every HTTP attempt, used for metrics.
// status is the HTTP status code or "error".
type RequestObserver func(endpoint, status string, elapsed time.Duration)

// Client talks to the contract store REST API
type Client struct {
	baseURL       string
	contractsPath string
	workersPath   string
	token         string
	timeout       time.Duration

	http      *httpclient.Client
	directory *WorkerDirectory
	logger    logger.Logger
	observer  RequestObserver
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestObserver registers a per-request callback
func WithRequestObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithDirectory shares an existing worker directory
func WithDirectory(d *WorkerDirectory) Option {
	return func(c *Client) {
		if d != nil {
			c.directory = d
		}
	}
}

// New creates a client for the configured backend
func New(cfg conf.ContractStoreSettings, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid contract store base url %q", logger.RedactURL(cfg.BaseURL)).
			Component("contractstore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Client{
		baseURL:       base,
		contractsPath: withDefault(cfg.ContractsPath, conf.DefaultContractsPath),
		workersPath:   withDefault(cfg.WorkersPath, conf.DefaultWorkersPath),
		token:         cfg.APIToken,
		timeout:       cfg.Timeout,
		directory:     NewWorkerDirectory(cfg.CacheTTL),
		logger:        logger.NewDiscardLogger(),
	}
	if c.timeout <= 0 {
		c.timeout = conf.DefaultFetchTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		hc := httpclient.DefaultConfig()
		hc.DefaultTimeout = c.timeout
		hc.UserAgent = cfg.UserAgent
		hc.MaxAttempts = cfg.MaxRetries
		c.http = httpclient.New(&hc)
	}
	c.http.SetAfterResponseHook(c.observe)
	return c, nil
}

func withDefault(path, def string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = def
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Directory returns the worker directory filled by Workers and Snapshot
func (c *Client) Directory() *WorkerDirectory {
	return c.directory
}

// HTTPClient exposes the transport, for tests
func (c *Client) HTTPClient() *httpclient.Client {
	return c.http
}

// Close releases idle connections
func (c *Client) Close() {
	c.http.Close()
}

func (c *Client) endpointFor(path string) string {
	if strings.HasSuffix(path, c.workersPath) {
		return EndpointWorkers
	}
	return EndpointContracts
}

func (c *Client) observe(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.observer(c.endpointFor(req.URL.Path), status, elapsed)
}

// Snapshot fetches contracts and workers concurrently within the fetch
// timeout and refreshes the worker directory. A failure of either request
// fails the snapshot.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		contracts []contract.Contract
		workers   []contract.Worker
		skippedC  int
		skippedW  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contracts, skippedC, err = c.fetchContracts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		workers, skippedW, err = c.fetchWorkers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, c.fetchError(err, start)
	}

	c.directory.Replace(workers)

	c.logger.Debug("contract store snapshot fetched",
		logger.Int("contracts", len(contracts)),
		logger.Int("workers", len(workers)),
		logger.Int("skipped", skippedC+skippedW),
		logger.Duration("elapsed", time.Since(start)))

	return &Snapshot{
		Contracts: contracts,
		Workers:   workers,
		FetchedAt: start,
		Skipped:   skippedC + skippedW,
	}, nil
}

// Contracts fetches and normalizes the contract list
func (c *Client) Contracts(ctx context.Context) ([]contract.Contract, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contracts, _, err := c.fetchContracts(ctx)
	if err != nil {
		return nil, c.fetchError(err, start)
	}
	return contracts, nil
}

// Workers fetches the worker list and refreshes the directory
func (c *Client) Workers(ctx context.Context) ([]contract.Worker, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	workers, _, err := c.fetchWorkers(ctx)
	if err != nil {
		return nil, c.fetchError(err, start)
	}
	c.directory.Replace(workers)
	return workers, nil
}

func (c *Client) fetchContracts(ctx context.Context) ([]contract.Contract, int, error) {
	raws, err := fetchList[contract.RawContract](ctx, c, c.contractsPath)
	if err != nil {
		return nil, 0, err
	}
	out := make([]contract.Contract, 0, len(raws))
	skipped := 0
	for i := range raws {
		ct, err := raws[i].Normalize()
		if err != nil {
			skipped++
			c.logger.Warn("skipping malformed contract record", logger.Int("index", i), logger.Error(err))
			continue
		}
		switch {
		case ct.RawStartDate != "":
			c.logger.Warn("contract start date could not be parsed",
				logger.String("contract_id", ct.ID),
				logger.String("start_date", ct.RawStartDate))
		case ct.RawEndDate != "":
			c.logger.Warn("contract end date could not be parsed",
				logger.String("contract_id", ct.ID),
				logger.String("end_date", ct.RawEndDate))
		default:
			if err := ct.Validate(); err != nil {
				c.logger.Warn("contract violates date rules, keeping it", logger.Error(err))
			}
		}
		out = append(out, ct)
	}
	return out, skipped, nil
}

func (c *Client) fetchWorkers(ctx context.Context) ([]contract.Worker, int, error) {
	raws, err := fetchList[contract.RawWorker](ctx, c, c.workersPath)
	if err != nil {
		return nil, 0, err
	}
	out := make([]contract.Worker, 0, len(raws))
	skipped := 0
	for i := range raws {
		w, err := raws[i].Normalize()
		if err != nil {
			skipped++
			c.logger.Warn("skipping malformed worker record", logger.Int("index", i), logger.Error(err))
			continue
		}
		out = append(out, w)
	}
	return out, skipped, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// fetchList GETs path and decodes a bare JSON array or a {"data": [...]} envelope
func fetchList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	endpoint := c.baseURL + path
	resp, err := c.http.GetWithRetry(ctx, endpoint, c.header())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.New(err).
			Component("contractstore").
			Category(errors.CategoryNetwork).
			Context("endpoint", c.endpointFor(path)).
			Build()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("contract store returned status %d", resp.StatusCode).
			Component("contractstore").
			Category(statusCategory(resp.StatusCode)).
			Context("endpoint", c.endpointFor(path)).
			Context("status_code", resp.StatusCode).
			Build()
	}

	items, err := decodeList[T](body)
	if err != nil {
		return nil, errors.New(err).
			Component("contractstore").
			Category(errors.CategoryFileParsing).
			Context("endpoint", c.endpointFor(path)).
			Build()
	}
	return items, nil
}

func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.NewStd("empty response body")
	}

	var items []T
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope struct {
		Data *[]T `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, errors.NewStd(`response is neither an array nor a {"data": [...]} object`)
	}
	return *envelope.Data, nil
}

// statusCategory maps an HTTP status to an error category
func statusCategory(status int) errors.ErrorCategory {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}

// fetchError classifies a fetch failure as network, timeout or cancellation.
// The status code of a rejected request stays in the wrapped error context.
func (c *Client) fetchError(err error, start time.Time) error {
	category := errors.CategoryNetwork
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		category = errors.CategoryCancellation
	}

	c.logger.Warn("contract store fetch failed",
		logger.Error(err),
		logger.String("category", string(category)),
		logger.Duration("elapsed", time.Since(start)))

	return errors.New(err).
		Component("contractstore").
		Category(category).
		NetworkContext(logger.RedactURL(c.baseURL), c.timeout).
		Build()
}
