package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-synth/internal/ratelimit"
)

// --- Mock implementations ---

// mockRegistry implements driven.SourceRegistry for testing.
type mockRegistry struct {
	sources []domain.Source
	listErr error
	getErr  error
}

func (m *mockRegistry) ListSources(_ context.Context, ownerID string) ([]domain.Source, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Source
	for _, s := range m.sources {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRegistry) GetSource(_ context.Context, id, ownerID string) (*domain.Source, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.sources {
		if m.sources[i].ID == id && m.sources[i].OwnerID == ownerID {
			s := m.sources[i]
			return &s, nil
		}
	}
	return nil, nil
}

// mockVectors implements driven.VectorSearcher for testing.
type mockVectors struct {
	mu    sync.Mutex
	hits  map[string][]driven.VectorHit
	errs  map[string]error
	calls map[string]int
	topK  map[string]int
	query map[string]string
}

func newMockVectors() *mockVectors {
	return &mockVectors{
		hits:  make(map[string][]driven.VectorHit),
		errs:  make(map[string]error),
		calls: make(map[string]int),
		topK:  make(map[string]int),
		query: make(map[string]string),
	}
}

func (m *mockVectors) QuerySimilar(_ context.Context, queryText, _, sourceID string, topK int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[sourceID]++
	m.topK[sourceID] = topK
	m.query[sourceID] = queryText
	if err := m.errs[sourceID]; err != nil {
		return nil, err
	}
	hits := m.hits[sourceID]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return append([]driven.VectorHit(nil), hits...), nil
}

// mockTexts implements driven.TextStore for testing.
type mockTexts struct {
	previews   map[string]string
	full       map[string]string
	previewErr map[string]error
}

func (m *mockTexts) PreviewText(_ context.Context, id string) (string, error) {
	if err := m.previewErr[id]; err != nil {
		return "", err
	}
	return m.previews[id], nil
}

func (m *mockTexts) FullText(_ context.Context, id string) (string, error) {
	return m.full[id], nil
}

// mockLLM implements driven.LLMProvider for testing.
type mockLLM struct {
	mu       sync.Mutex
	name     string
	kind     domain.ProviderKind
	model    string
	pingErr  error
	reply    string
	chatErrs []error // returned in order, then reply
	calls    int
	models   []string
}

func (m *mockLLM) Chat(_ context.Context, _ []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.models = append(m.models, opts.Model)
	if len(m.chatErrs) > 0 {
		err := m.chatErrs[0]
		m.chatErrs = m.chatErrs[1:]
		return "", err
	}
	return m.reply, nil
}

func (m *mockLLM) Ping(_ context.Context) error { return m.pingErr }
func (m *mockLLM) Name() string                 { return m.name }
func (m *mockLLM) Kind() domain.ProviderKind    { return m.kind }
func (m *mockLLM) ModelName() string            { return m.model }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRouter implements driving.ModelRouter for testing.
type mockRouter struct {
	reply    string
	err      error
	messages [][]driven.ChatMessage
}

func (m *mockRouter) Select(_ context.Context, _ string) (*domain.ModelSelection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return testSelection(), nil
}

func (m *mockRouter) Complete(
	_ context.Context, _ string, messages []driven.ChatMessage, _ driven.ChatOptions,
) (*driving.Completion, error) {
	m.messages = append(m.messages, messages)
	if m.err != nil {
		return nil, m.err
	}
	return &driving.Completion{Text: m.reply, Selection: *testSelection()}, nil
}

func testSelection() *domain.ModelSelection {
	return &domain.ModelSelection{
		Provider:     domain.ProviderLocal,
		ProviderName: "mock",
		ModelID:      "mock-model",
		Reason:       "test",
	}
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockQueryRouter implements driving.QueryRouter for testing.
type mockQueryRouter struct {
	decision *domain.RoutingDecision
	err      error
}

func (m *mockQueryRouter) Classify(_ context.Context, _, _ string) (*domain.RoutingDecision, error) {
	return m.decision, m.err
}

// mockSearch implements driving.SourceSearchService for testing.
type mockSearch struct {
	outcome *domain.SearchOutcome
	err     error
	opts    []domain.SearchOptions
}

func (m *mockSearch) Search(
	_ context.Context, query, _ string, opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	out := *m.outcome
	out.Query = query
	return &out, nil
}

// --- Helpers ---

const testOwner = "owner-1"

// testInvokers returns a registry whose invokers never sleep.
func testInvokers() *ratelimit.Registry {
	return ratelimit.NewRegistry(ratelimit.Policy{
		MaxInFlight: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		MaxAttempts: 3,
	},
		ratelimit.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		ratelimit.WithJitter(ratelimit.NoJitter),
	)
}

var sourceClock = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func completedSource(id, name string) domain.Source {
	sourceClock = sourceClock.Add(time.Minute)
	return domain.Source{
		ID:        id,
		OwnerID:   testOwner,
		Name:      name,
		Kind:      domain.SourceKindDocument,
		Status:    domain.SourceStatusCompleted,
		CreatedAt: sourceClock,
	}
}

func withKind(s domain.Source, kind domain.SourceKind) domain.Source {
	s.Kind = kind
	return s
}

func withStatus(s domain.Source, status domain.SourceStatus) domain.Source {
	s.Status = status
	return s
}

func intPtr(v int) *int {
	return &v
}
