// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package provider

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// Registry manages provider registration and routes generation requests to
// the default "provider/model" ref, walking the failover chain when a
// provider is unavailable or fails. It implements Generator.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	defaultRef string   // "provider/model" format
	failover   []string // ordered list of "provider/model" refs

	options Options
	timeout time.Duration
	logger  *slog.Logger
}

var _ Generator = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithOptions sets the generation options applied to every request.
func WithOptions(opts Options) RegistryOption {
	return func(r *Registry) { r.options = opts }
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// WithLogger sets the logger used for failover diagnostics.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider to the registry.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, deskerr.New(deskerr.CodeProviderNotFound,
			"provider not found: "+name,
			deskerr.FieldProvider(name),
		)
	}
	return p, nil
}

// SetDefault sets the default "provider/model" reference. Returns an error
// if the provider portion of the ref is not registered.
func (r *Registry) SetDefault(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRefLocked("SetDefault", ref); err != nil {
		return err
	}
	r.defaultRef = ref
	return nil
}

// SetFailover sets the ordered failover chain of "provider/model" refs.
func (r *Registry) SetFailover(chain []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range chain {
		if err := r.checkRefLocked("SetFailover", ref); err != nil {
			return err
		}
	}
	r.failover = append([]string(nil), chain...)
	return nil
}

func (r *Registry) checkRefLocked(op, ref string) error {
	if !strings.Contains(ref, "/") {
		return deskerr.Errorf(deskerr.CodeProviderInvalidModelRef,
			"%s: model ref %q must use provider/model format", op, ref)
	}
	provName, _ := parseRef(ref)
	if _, ok := r.providers[provName]; !ok {
		return deskerr.New(deskerr.CodeProviderNotFound,
			op+": provider not registered: "+provName,
			deskerr.FieldProvider(provName),
		)
	}
	return nil
}

// Candidates returns the refs a request would try, in order: the default
// followed by the failover chain, without duplicates.
func (r *Registry) Candidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, 1+len(r.failover))
	out := make([]string, 0, 1+len(r.failover))
	for _, ref := range append([]string{r.defaultRef}, r.failover...) {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// Generate sends prompt to the first healthy candidate and returns its text.
// A failing provider records a failure and the next candidate is tried.
func (r *Registry) Generate(ctx context.Context, prompt string) (string, error) {
	refs := r.Candidates()
	if len(refs) == 0 {
		return "", deskerr.New(deskerr.CodeProviderNoDefault, "no default provider configured")
	}

	var errs []error
	for _, ref := range refs {
		p, model, err := r.tryRef(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		resp, err := r.complete(ctx, p, UserPrompt(model, prompt, r.options))
		if err != nil {
			if hr, ok := p.(HealthReporter); ok {
				hr.RecordFailure()
			}
			r.logger.Warn("provider call failed",
				"provider", p.Name(),
				"model", model,
				"error", err,
			)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if hr, ok := p.(HealthReporter); ok {
			hr.RecordSuccess()
		}
		return resp.Text, nil
	}

	if len(errs) == 1 {
		return "", errs[0]
	}
	return "", deskerr.Wrap(deskerr.Join(errs...), deskerr.CodeProviderAllUnavailable,
		"all providers unavailable")
}

func (r *Registry) complete(ctx context.Context, p Provider, req Request) (*Response, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := p.Complete(ctx, req)
	if err != nil {
		if deskerr.CodeOf(err) == "" {
			err = deskerr.Wrap(err, deskerr.CodeProviderUpstreamFailure, p.Name()+" completion failed",
				deskerr.FieldProvider(p.Name()))
		}
		return nil, err
	}
	return resp, nil
}

// Health returns per-provider health snapshots for providers that track it.
func (r *Registry) Health() map[string]HealthMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]HealthMetrics, len(r.providers))
	for name, p := range r.providers {
		if hr, ok := p.(HealthReporter); ok {
			out[name] = hr.HealthMetrics()
		}
	}
	return out
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return deskerr.Join(errs...)
}

// tryRef parses a "provider/model" ref, looks up the provider, and checks
// availability.
func (r *Registry) tryRef(ctx context.Context, ref string) (Provider, string, error) {
	providerName, model := parseRef(ref)

	r.mu.RLock()
	p, ok := r.providers[providerName]
	r.mu.RUnlock()
	if !ok {
		return nil, "", deskerr.New(deskerr.CodeProviderNotFound,
			"provider not found: "+providerName,
			deskerr.FieldProvider(providerName),
		)
	}

	if !p.Available(ctx) {
		return nil, "", deskerr.New(deskerr.CodeProviderUpstreamFailure,
			"provider unavailable: "+providerName,
			deskerr.FieldProvider(providerName),
		)
	}

	return p, model, nil
}

// parseRef splits a "provider/model" reference on the first "/".
func parseRef(ref string) (providerName, model string) {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}
