// Package session owns the signed-in identity and the workspace built for it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"zestro/client/internal/api"
	"zestro/client/internal/cart"
	"zestro/client/internal/notify"
	"zestro/client/internal/orders"
	"zestro/client/internal/realtime"
	"zestro/domain"
	"zestro/lifecycle"
)

var ErrNoSession = errors.New("not signed in")

type Config struct {
	BaseURL string
	HTTP    api.HTTPClient
	Redis   *redis.Client
	// Realtime opens the websocket channel for every workspace.
	Realtime bool
	Dialer   *websocket.Dialer
	OnEvent  func(e domain.Event, changed bool)
}

type Manager struct {
	cfg Config

	mu          sync.Mutex
	ws          *Workspace
	subscribers map[int]func(domain.Identity)
	nextSub     int
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, subscribers: make(map[int]func(domain.Identity))}
}

func (m *Manager) Login(ctx context.Context, email, password string) (*Workspace, error) {
	client := api.New(m.cfg.BaseURL, m.cfg.HTTP)
	res, err := client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, client, res.Token, res.User)
}

func (m *Manager) Signup(ctx context.Context, req api.SignupRequest) (*Workspace, error) {
	client := api.New(m.cfg.BaseURL, m.cfg.HTTP)
	res, err := client.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, client, res.Token, res.User)
}

// Resume rebuilds a workspace from a token saved by an earlier session.
func (m *Manager) Resume(ctx context.Context, token string) (*Workspace, error) {
	client := api.New(m.cfg.BaseURL, m.cfg.HTTP)
	client.SetToken(token)
	me, err := client.Me(ctx)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, client, token, *me)
}

func (m *Manager) open(ctx context.Context, client *api.Client, token string, identity domain.Identity) (*Workspace, error) {
	caps, ok := lifecycle.CapabilitiesOf(identity.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", lifecycle.ErrUnauthorized, identity.Role)
	}
	client.SetToken(token)

	ws, err := m.build(ctx, client, identity, caps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.ws
	m.ws = ws
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
		if prev.Identity.ID != identity.ID {
			log.Printf("[session] switching identity %s -> %s", prev.Identity.ID, identity.ID)
			if prev.Cart != nil {
				if err := prev.Cart.Discard(ctx); err != nil {
					log.Printf("[session] discard cart of %s: %v", prev.Identity.ID, err)
				}
			}
		}
	}

	wsCtx, cancel := context.WithCancel(context.Background())
	ws.cancel = cancel
	ws.start(wsCtx)

	if identity.Role == domain.RoleRestaurant {
		if _, _, err := ws.RestaurantProfile(ctx); err != nil {
			log.Printf("[session] %v", err)
		}
	}
	if !m.cfg.Realtime {
		if err := ws.Refresh(ctx); err != nil {
			log.Printf("[session] initial refresh: %v", err)
		}
	}

	m.notify(identity)
	return ws, nil
}

func (m *Manager) build(ctx context.Context, client *api.Client, identity domain.Identity, caps lifecycle.Capability) (*Workspace, error) {
	ws := &Workspace{
		Identity: identity,
		Caps:     caps,
		API:      client,
		Inbox:    notify.NewInbox(client),
	}

	var c orders.Cart
	if caps.HasCart {
		if m.cfg.Redis == nil {
			return nil, fmt.Errorf("cart store for %s: no redis client", identity.ID)
		}
		store, err := cart.Open(ctx, m.cfg.Redis, identity.ID)
		if err != nil {
			return nil, err
		}
		ws.Cart = store
		c = store
	}

	engine, err := orders.NewEngine(client, c, lifecycle.Actor{ID: identity.ID, Role: identity.Role})
	if err != nil {
		return nil, err
	}
	ws.Orders = engine

	if m.cfg.Realtime {
		wsURL, err := realtime.WebsocketURL(m.cfg.BaseURL, client.Token())
		if err != nil {
			return nil, err
		}
		rec := &realtime.Reconciler{
			Board:   engine.Board(),
			Inbox:   ws.Inbox,
			Self:    identity.ID,
			OnEvent: m.cfg.OnEvent,
		}
		ws.Channel = realtime.NewChannel(wsURL, rec.Apply, func(ctx context.Context) {
			if err := ws.Refresh(ctx); err != nil {
				log.Printf("[session] refresh after connect: %v", err)
			}
		})
		if m.cfg.Dialer != nil {
			ws.Channel.Dialer = m.cfg.Dialer
		}
	}
	return ws, nil
}

// Logout closes the workspace and discards the identity's cart.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	ws := m.ws
	m.ws = nil
	m.mu.Unlock()

	if ws == nil {
		return ErrNoSession
	}
	ws.Close()
	if ws.Cart != nil {
		if err := ws.Cart.Discard(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the open workspace, or nil when signed out.
func (m *Manager) Current() *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws
}

func (m *Manager) Identity() (domain.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ws == nil {
		return domain.Identity{}, false
	}
	return m.ws.Identity, true
}

// UpdateProfile saves the profile on the server and then propagates the
// updated identity to every subscriber.
func (m *Manager) UpdateProfile(ctx context.Context, name, phone string) (domain.Identity, error) {
	ws := m.Current()
	if ws == nil {
		return domain.Identity{}, ErrNoSession
	}
	updated, err := ws.API.UpdateProfile(ctx, name, phone)
	if err != nil {
		return domain.Identity{}, err
	}
	m.UpdateIdentity(*updated)
	return *updated, nil
}

// UpdateIdentity replaces the identity of the open workspace. The role and id
// are fixed for the life of a workspace; only profile fields change.
func (m *Manager) UpdateIdentity(identity domain.Identity) {
	m.mu.Lock()
	if m.ws == nil || m.ws.Identity.ID != identity.ID {
		m.mu.Unlock()
		return
	}
	identity.Role = m.ws.Identity.Role
	m.ws.Identity = identity
	m.mu.Unlock()

	m.notify(identity)
}

// Subscribe registers fn for identity changes and returns its cancel func.
func (m *Manager) Subscribe(fn func(domain.Identity)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(identity domain.Identity) {
	m.mu.Lock()
	fns := make([]func(domain.Identity), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}
