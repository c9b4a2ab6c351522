package modelgateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrProviderRequired is returned by NewGateway when no default provider has
// been configured.
var ErrProviderRequired = errors.New("modelgateway: a provider is required")

// ErrUnknownProvider is returned when a request names a provider the Gateway
// was not configured with.
var ErrUnknownProvider = errors.New("modelgateway: unknown provider")

type (
	// UnaryMiddleware wraps a completion call with cross-cutting behavior
	// (logging, metrics, retries). Middleware are composed in registration
	// order: the first registered becomes the outermost layer.
	UnaryMiddleware func(next UnaryHandler) UnaryHandler

	// UnaryHandler completes one Request against whichever provider the
	// Gateway has already resolved.
	UnaryHandler func(ctx context.Context, req Request) (Response, error)

	// Gateway routes completion requests to one of several named Provider
	// backends and applies a shared middleware chain around all of them.
	Gateway struct {
		providers map[string]Provider
		def       string
		unary     func(Provider) UnaryHandler
		mw        []UnaryMiddleware
	}

	// Option configures a Gateway at construction.
	Option func(*Gateway)
)

// WithProvider registers a named backend. The first provider registered
// becomes the default used when a Request.Model does not disambiguate by
// provider prefix.
func WithProvider(name string, p Provider) Option {
	return func(g *Gateway) {
		if g.providers == nil {
			g.providers = make(map[string]Provider)
		}
		g.providers[name] = p
		if g.def == "" {
			g.def = name
		}
	}
}

// WithUnary appends middleware to the Gateway's completion chain.
func WithUnary(mw ...UnaryMiddleware) Option {
	return func(g *Gateway) { g.mw = append(g.mw, mw...) }
}

// NewGateway constructs a Gateway from the given options. At least one
// provider must be registered via WithProvider.
func NewGateway(opts ...Option) (*Gateway, error) {
	g := &Gateway{}
	for _, opt := range opts {
		opt(g)
	}
	if len(g.providers) == 0 {
		return nil, ErrProviderRequired
	}
	return g, nil
}

// Complete resolves a provider for req (by explicit Provider name embedded
// as "provider:model" in req.Model, falling back to the default) and runs
// it through the registered middleware chain.
func (g *Gateway) Complete(ctx context.Context, req Request) (Response, error) {
	name, modelID := splitProvider(req.Model, g.def)
	p, ok := g.providers[name]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	req.Model = modelID

	handler := UnaryHandler(func(ctx context.Context, req Request) (Response, error) {
		return p.Complete(ctx, req)
	})
	for i := len(g.mw) - 1; i >= 0; i-- {
		handler = g.mw[i](handler)
	}
	return handler(ctx, req)
}

// Stream resolves a provider the same way Complete does and delegates
// directly to its Stream method; streaming chunks are not passed through
// the unary middleware chain.
func (g *Gateway) Stream(ctx context.Context, req Request) (Streamer, error) {
	name, modelID := splitProvider(req.Model, g.def)
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	req.Model = modelID
	return p.Stream(ctx, req)
}

func splitProvider(model, def string) (provider, rest string) {
	for i := 0; i < len(model); i++ {
		if model[i] == ':' {
			return model[:i], model[i+1:]
		}
	}
	return def, model
}
