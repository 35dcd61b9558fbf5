package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/logger"
	"github.com/custodia-labs/sercha-synth/internal/metrics"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// Ensure ModelRouter implements the interface.
var _ driving.ModelRouter = (*ModelRouter)(nil)

// Availability is the result of probing both providers.
type Availability int

// Availability states.
const (
	NoneAvailable Availability = iota
	OnlyLocal
	OnlyCloud
	BothAvailable
)

// String returns the state name.
func (a Availability) String() string {
	switch a {
	case OnlyLocal:
		return "only local"
	case OnlyCloud:
		return "only cloud"
	case BothAvailable:
		return "both available"
	default:
		return "none available"
	}
}

// Has reports whether the provider of the given kind is live.
func (a Availability) Has(kind domain.ProviderKind) bool {
	switch a {
	case BothAvailable:
		return true
	case OnlyLocal:
		return kind == domain.ProviderLocal
	case OnlyCloud:
		return kind == domain.ProviderCloud
	default:
		return false
	}
}

// probeResult is the availability of both providers with the reason a provider
// is not live.
type probeResult struct {
	state Availability
	errs  map[domain.ProviderKind]error
}

var errProviderNotConfigured = errors.New("provider not configured")

// ModelRouter routes queries between a local and a cloud provider.
// Either provider may be nil, which counts as unavailable.
type ModelRouter struct {
	local    driven.LLMProvider
	cloud    driven.LLMProvider
	invokers *ratelimit.Registry

	mu       sync.RWMutex
	settings domain.RouterSettings
}

// NewModelRouter creates a router over the two provider slots.
func NewModelRouter(
	local, cloud driven.LLMProvider,
	invokers *ratelimit.Registry,
	settings domain.RouterSettings,
) *ModelRouter {
	return &ModelRouter{
		local:    local,
		cloud:    cloud,
		invokers: invokers,
		settings: settings,
	}
}

// SetSettings replaces the model choices and the probe timeout.
func (r *ModelRouter) SetSettings(settings domain.RouterSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
}

func (r *ModelRouter) current() domain.RouterSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Select probes both providers and picks a model for query.
func (r *ModelRouter) Select(ctx context.Context, query string) (*domain.ModelSelection, error) {
	sel, _, err := r.selectModel(ctx, query)
	return sel, err
}

// Complete selects a model and sends messages to it. When the selected
// provider fails it retries exactly once on the other provider if that one
// was live; otherwise the errors of both are returned together.
func (r *ModelRouter) Complete(
	ctx context.Context, query string, messages []driven.ChatMessage, opts driven.ChatOptions,
) (*driving.Completion, error) {
	sel, pr, err := r.selectModel(ctx, query)
	if err != nil {
		return nil, err
	}

	text, err := r.chat(ctx, *sel, messages, opts)
	if err == nil {
		return &driving.Completion{Text: text, Selection: *sel}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	primary := r.provider(sel.Provider)
	failures := map[string]error{failureKey(sel.Provider, primary): err}

	otherKind := sel.Provider.Other()
	other := r.provider(otherKind)
	if !pr.state.Has(otherKind) {
		if pingErr := pr.errs[otherKind]; pingErr != nil {
			failures[failureKey(otherKind, other)] = pingErr
		}
		logger.Warn("Provider %s failed and no fallback is live: %v", primary.Name(), err)
		return nil, &domain.ProviderFailureError{Errors: failures}
	}

	logger.Warn("Provider %s failed, falling back to %s: %v", primary.Name(), other.Name(), err)
	metrics.Default().IncDegraded("route", "fallback")

	fallback := r.selectionFor(otherKind, sel.Complexity,
		fmt.Sprintf("fallback after %s failed", primary.Name()))
	fallbackOpts := opts
	fallbackOpts.Model = ""
	text, err = r.chat(ctx, fallback, messages, fallbackOpts)
	if err == nil {
		return &driving.Completion{Text: text, Selection: fallback, FellBack: true}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	failures[failureKey(otherKind, other)] = err
	return nil, &domain.ProviderFailureError{Errors: failures}
}

// selectModel runs the availability state machine for one query.
func (r *ModelRouter) selectModel(ctx context.Context, query string) (*domain.ModelSelection, probeResult, error) {
	pr := r.probe(ctx)
	complexity := ClassifyComplexity(query)
	logger.Debug("Providers: %s, complexity: %s", pr.state, complexity)

	var sel domain.ModelSelection
	switch pr.state {
	case NoneAvailable:
		if err := ctx.Err(); err != nil {
			return nil, pr, err
		}
		return nil, pr, fmt.Errorf("%w: local: %v; cloud: %v", domain.ErrProvidersUnavailable,
			pr.errs[domain.ProviderLocal], pr.errs[domain.ProviderCloud])
	case OnlyLocal:
		sel = r.selectionFor(domain.ProviderLocal, complexity, "only local provider available")
	case OnlyCloud:
		sel = r.selectionFor(domain.ProviderCloud, complexity, "only cloud provider available")
	default:
		if complexity == domain.ComplexitySimple {
			sel = r.selectionFor(domain.ProviderLocal, complexity, "simple query")
		} else {
			sel = r.selectionFor(domain.ProviderCloud, complexity, complexity.String()+" query")
		}
	}
	logger.Info("Routed to %s/%s (%s)", sel.ProviderName, sel.ModelID, sel.Reason)
	return &sel, pr, nil
}

// probe checks both providers concurrently, each bounded by ProbeTimeout.
func (r *ModelRouter) probe(ctx context.Context) probeResult {
	var localErr, cloudErr error
	var g errgroup.Group
	g.Go(func() error {
		localErr = r.ping(ctx, r.local)
		return nil
	})
	g.Go(func() error {
		cloudErr = r.ping(ctx, r.cloud)
		return nil
	})
	_ = g.Wait()

	pr := probeResult{errs: map[domain.ProviderKind]error{
		domain.ProviderLocal: localErr,
		domain.ProviderCloud: cloudErr,
	}}
	switch {
	case localErr == nil && cloudErr == nil:
		pr.state = BothAvailable
	case localErr == nil:
		pr.state = OnlyLocal
	case cloudErr == nil:
		pr.state = OnlyCloud
	default:
		pr.state = NoneAvailable
	}
	return pr
}

func (r *ModelRouter) ping(ctx context.Context, p driven.LLMProvider) error {
	if p == nil {
		return errProviderNotConfigured
	}
	if timeout := r.current().ProbeTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.Ping(ctx)
}

func (r *ModelRouter) chat(
	ctx context.Context, sel domain.ModelSelection, messages []driven.ChatMessage, opts driven.ChatOptions,
) (string, error) {
	p := r.provider(sel.Provider)
	if opts.Model == "" {
		opts.Model = sel.ModelID
	}
	return ratelimit.Invoke(ctx, r.invokers.For(p.Name()), func(ctx context.Context) (string, error) {
		return p.Chat(ctx, messages, opts)
	})
}

func (r *ModelRouter) provider(kind domain.ProviderKind) driven.LLMProvider {
	if kind == domain.ProviderLocal {
		return r.local
	}
	return r.cloud
}

// selectionFor picks the model of a provider for a complexity level.
func (r *ModelRouter) selectionFor(kind domain.ProviderKind, c domain.Complexity, reason string) domain.ModelSelection {
	p := r.provider(kind)
	cfg := r.current()
	model := cfg.LocalModel
	if kind == domain.ProviderCloud {
		model = cfg.CloudSmallModel
		if c == domain.ComplexityComplex && cfg.CloudLargeModel != "" {
			model = cfg.CloudLargeModel
		}
	}
	if model == "" {
		model = p.ModelName()
	}
	return domain.ModelSelection{
		Provider:     kind,
		ProviderName: p.Name(),
		ModelID:      model,
		Reason:       reason,
		Complexity:   c,
	}
}

func failureKey(kind domain.ProviderKind, p driven.LLMProvider) string {
	if p == nil {
		return string(kind)
	}
	return string(kind) + "/" + p.Name()
}

// Complexity thresholds in words.
const (
	simpleMaxWords         = 8
	mediumMaxWords         = 25
	analyticComplexMinWord = 16
)

// analyticStems mark queries that ask for reasoning rather than lookup.
var analyticStems = []string{"analy", "compar", "explain", "evaluat", "contrast"}

// ClassifyComplexity estimates query difficulty from its length, analytic
// verbs and the number of questions asked.
func ClassifyComplexity(query string) domain.Complexity {
	words := strings.Fields(query)
	n := len(words)

	c := domain.ComplexityComplex
	switch {
	case n <= simpleMaxWords:
		c = domain.ComplexitySimple
	case n <= mediumMaxWords:
		c = domain.ComplexityMedium
	}

	if hasAnalyticVerb(words) {
		if n >= analyticComplexMinWord {
			c = domain.ComplexityComplex
		} else if c < domain.ComplexityMedium {
			c = domain.ComplexityMedium
		}
	}

	if strings.Count(query, "?") >= 2 {
		c = c.Escalate()
	}
	return c
}

func hasAnalyticVerb(words []string) bool {
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r)
		}))
		if w == "why" {
			return true
		}
		for _, stem := range analyticStems {
			if strings.HasPrefix(w, stem) {
				return true
			}
		}
	}
	return false
}
