// Package rpc implements ledger.Gateway over the cluster's JSON-RPC 2.0 HTTP
// interface using the solana-go client.
package rpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"lpp-backend/internal/config"
	"lpp-backend/internal/observability"
	appErrors "lpp-backend/pkg/errors"
)

// Client talks to one RPC endpoint. All calls share a circuit breaker, so a
// node that keeps failing is given a rest before it is tried again.
type Client struct {
	rpc          *solanarpc.Client
	commitment   solanarpc.CommitmentType
	confirmWait  time.Duration
	pollInterval time.Duration

	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for cfg.RPCEndpoint. metrics may be nil.
func NewClient(cfg config.LedgerConfig, breaker config.BreakerConfig, logger *zap.Logger, metrics *observability.Collector, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		commitment:   solanarpc.CommitmentType(cfg.Commitment),
		confirmWait:  cfg.ConfirmTimeout,
		pollInterval: cfg.ConfirmPollInterval,
		httpClient:   &http.Client{},
		logger:       logger.With(zap.String("component", "ledger_rpc")),
	}
	if c.commitment == "" {
		c.commitment = solanarpc.CommitmentConfirmed
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 500 * time.Millisecond
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := jsonrpc.NewClientWithOpts(cfg.RPCEndpoint, &jsonrpc.RPCClientOpts{HTTPClient: c.httpClient})
	c.rpc = solanarpc.NewWithCustomRPCClient(&guardedTransport{
		next:    transport,
		timeout: cfg.RPCTimeout,
		breaker: newBreaker(breaker, c.logger),
		logger:  c.logger,
		metrics: metrics,
	})
	return c
}

func newBreaker(cfg config.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger-rpc",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: reachable,
	})
}

// reachable reports whether err still shows a healthy node. A JSON-RPC error
// object means the node answered. A call its caller abandoned says nothing
// about the node either way.
func reachable(err error) bool {
	var rpcErr *jsonrpc.RPCError
	var gone *abandonedError
	return err == nil || errors.As(err, &rpcErr) || errors.As(err, &gone)
}

// abandonedError marks a call that failed because the caller's own context
// ended. A node that outlives the per-call timeout is still a failure.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// guardedTransport decorates the JSON-RPC transport with the per-call
// timeout, circuit breaker, tracing, metrics and logging.
type guardedTransport struct {
	next    solanarpc.JSONRPCClient
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Collector
}

func (g *guardedTransport) CallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error {
	return g.guard(ctx, method, func(ctx context.Context) error {
		return g.next.CallForInto(ctx, out, method, params)
	})
}

func (g *guardedTransport) CallWithCallback(ctx context.Context, method string, params []interface{}, callback func(*http.Request, *http.Response) error) error {
	return g.guard(ctx, method, func(ctx context.Context) error {
		return g.next.CallWithCallback(ctx, method, params, callback)
	})
}

func (g *guardedTransport) CallBatch(ctx context.Context, requests jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	var responses jsonrpc.RPCResponses
	err := g.guard(ctx, "batch", func(ctx context.Context) error {
		var err error
		responses, err = g.next.CallBatch(ctx, requests)
		return err
	})
	return responses, err
}

func (g *guardedTransport) guard(ctx context.Context, method string, call func(context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "ledger.rpc."+method)
	defer span.End()
	span.SetAttributes(attribute.String("rpc.method", method))

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := g.breaker.Execute(func() (interface{}, error) {
		err := call(callCtx)
		if err != nil && ctx.Err() != nil {
			return nil, &abandonedError{err: err}
		}
		return nil, err
	})
	duration := time.Since(start)

	status := "ok"
	var rpcErr *jsonrpc.RPCError
	var gone *abandonedError
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "rejected"
	case errors.As(err, &gone):
		status = "abandoned"
		err = gone.err
	case errors.As(err, &rpcErr):
		status = "rpc_error"
	default:
		status = "error"
	}
	g.metrics.RecordLedgerCall(method, status, duration)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("Ledger RPC call failed",
			zap.String("method", method),
			zap.String("status", status),
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	g.logger.Debug("Ledger RPC call", zap.String("method", method), zap.Duration("duration", duration))
	return nil
}

// fail maps a client error to the archive's error taxonomy. Every failure is
// a TRANSPORT error except a missing result, which is NOT_FOUND; RPC error
// objects stay reachable through errors.As as *jsonrpc.RPCError.
func fail(method string, err error) error {
	if errors.Is(err, solanarpc.ErrNotFound) {
		return appErrors.NewNotFound(method + ": not found")
	}
	return appErrors.NewTransport(method, err)
}
