package apptest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/coach"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/sse"
)

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *Publisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// Types returns the published event types in order.
func (p *Publisher) Types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// Last returns the last published event or nil.
func (p *Publisher) Last() shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

// ─────────────────────────────────────────────────────────────────────────────
// Caches
// ─────────────────────────────────────────────────────────────────────────────

// ProfileCache is a map-backed profile.Cache.
type ProfileCache struct {
	mu      sync.Mutex
	items   map[string]*profile.Profile
	Deleted []string
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{items: make(map[string]*profile.Profile)}
}

func (c *ProfileCache) Get(_ context.Context, userID string) (*profile.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[userID]
	if !ok {
		return nil, nil
	}
	return cloneProfile(p), nil
}

func (c *ProfileCache) Set(_ context.Context, p *profile.Profile, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.UserID] = cloneProfile(p)
	return nil
}

func (c *ProfileCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, userID)
	c.Deleted = append(c.Deleted, userID)
	return nil
}

// CityCache is a map-backed city.Cache.
type CityCache struct {
	mu    sync.Mutex
	items map[string]*city.Insights
}

func NewCityCache() *CityCache {
	return &CityCache{items: make(map[string]*city.Insights)}
}

func (c *CityCache) Get(_ context.Context, name string) (*city.Insights, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[city.Normalize(name)], nil
}

func (c *CityCache) Set(_ context.Context, name string, in *city.Insights) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[city.Normalize(name)] = in
	return nil
}

// Len returns the number of cached cities.
func (c *CityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ─────────────────────────────────────────────────────────────────────────────
// Upstreams
// ─────────────────────────────────────────────────────────────────────────────

// Mailer records verification emails. Err fails every send.
type Mailer struct {
	mu    sync.Mutex
	Err   error
	Sent  []string
	Links []string
}

func (m *Mailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, to)
	m.Links = append(m.Links, link)
	return nil
}

// Gateway replays Chunks as a completion stream.
// Truncate ends the stream without the terminator.
type Gateway struct {
	mu       sync.Mutex
	Chunks   []string
	Truncate bool
	Err      error
	Calls    int
	Last     []coach.Message
}

func (g *Gateway) Stream(_ context.Context, msgs []coach.Message) (coach.Stream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	g.Last = msgs
	if g.Err != nil {
		return nil, g.Err
	}
	return &stream{chunks: append([]string(nil), g.Chunks...), truncate: g.Truncate}, nil
}

type stream struct {
	chunks   []string
	truncate bool
	closed   bool
}

func (s *stream) Next() ([]byte, error) {
	if len(s.chunks) == 0 {
		if s.truncate {
			return nil, sse.ErrTruncated
		}
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return []byte(c), nil
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

// CitySource returns Report (or Err) and counts calls.
type CitySource struct {
	mu     sync.Mutex
	Report city.Report
	Err    error
	Calls  int
}

func (s *CitySource) Fetch(_ context.Context, name string) (city.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return city.Report{}, s.Err
	}
	return s.Report, nil
}

// IdentityDeleter records deleted identities.
type IdentityDeleter struct {
	mu      sync.Mutex
	Err     error
	Deleted []string
}

func (d *IdentityDeleter) DeleteUser(_ context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.Deleted = append(d.Deleted, userID)
	return nil
}

// Checkout returns URL for every checkout.
type Checkout struct {
	URL   string
	Err   error
	Users []string
}

func (c *Checkout) CreateCheckout(_ context.Context, userID, _ string) (string, error) {
	if c.Err != nil {
		return "", c.Err
	}
	c.Users = append(c.Users, userID)
	return c.URL, nil
}
