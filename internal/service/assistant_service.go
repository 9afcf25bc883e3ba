package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-assistant/internal/cart"
	"storefront-assistant/internal/chat"
	"storefront-assistant/internal/config"
	"storefront-assistant/internal/gateway"
	"storefront-assistant/internal/render"
	"storefront-assistant/internal/scrape"
	"storefront-assistant/internal/search"
	"storefront-assistant/internal/storage"
	"storefront-assistant/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:"

var ErrWorkspaceNotFound = errors.New("workspace not found")

// Workspace is the per-visitor state: one chat session and one search
// surface. The cart is shared by every workspace.
type Workspace struct {
	ID        string
	Chat      *chat.Session
	Search    *search.Session
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) LastSeen() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

type AssistantService struct {
	storage  storage.Storage
	cart     *cart.Store
	gateway  gateway.Gateway
	renderer *render.Renderer
	scraper  *scrape.Runner
	config   *config.Config

	mu         sync.RWMutex
	workspaces map[string]*Workspace

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStorage builds the configured backend and falls back to memory when it
// cannot be initialised.
func NewStorage(cfg config.StorageConfig) storage.Storage {
	var store storage.Storage

	switch cfg.Type {
	case "disk":
		store = storage.NewDiskStorage(cfg.DataDir)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = storage.NewRedisStorage(client, redisKeyPrefix)
	default:
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize %s storage, using memory: %v", cfg.Type, err)
		store.Close()
		store = storage.NewMemoryStorage()
		store.Init()
	}

	return store
}

func NewAssistantService(cfg *config.Config, store storage.Storage, gw gateway.Gateway, r *render.Renderer) *AssistantService {
	items := cart.NewStore(store, cfg.Storage.CartKey)
	items.Initialize(context.Background())
	logger.Infof("Cart loaded with %d item(s)", items.Count())

	s := &AssistantService{
		storage:    store,
		cart:       items,
		gateway:    gw,
		renderer:   r,
		scraper:    scrape.NewRunner(gw, cfg.Backend.ScrapeKind),
		config:     cfg,
		workspaces: make(map[string]*Workspace),
		stop:       make(chan struct{}),
	}

	if cfg.Session.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop()
	}
	if cfg.Storage.BackupInterval > 0 {
		s.wg.Add(1)
		go s.backupLoop()
	}

	return s
}

// Workspace returns the visitor's workspace, creating it when id is empty or
// unknown. The returned workspace's ID is the one to hand back to the visitor.
func (s *AssistantService) Workspace(id string) *Workspace {
	now := time.Now()

	if id != "" {
		s.mu.RLock()
		ws, ok := s.workspaces[id]
		s.mu.RUnlock()
		if ok {
			ws.touch(now)
			return ws
		}
	}

	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.workspaces[id]; ok {
		ws.touch(now)
		return ws
	}

	ws := &Workspace{
		ID:        id,
		Chat:      chat.NewSession(s.gateway, s.cart, s.renderer),
		Search:    search.NewSession(s.gateway, s.config.UI.SnippetLength),
		CreatedAt: now,
		lastSeen:  now,
	}
	s.workspaces[id] = ws
	logger.Debugf("Created workspace %s", id)
	return ws
}

func (s *AssistantService) GetWorkspace(id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	return ws, nil
}

func (s *AssistantService) DeleteWorkspace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[id]; !ok {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	delete(s.workspaces, id)
	return nil
}

func (s *AssistantService) WorkspaceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}

func (s *AssistantService) Cart() *cart.Store {
	return s.cart
}

func (s *AssistantService) Scraper() *scrape.Runner {
	return s.scraper
}

func (s *AssistantService) Renderer() *render.Renderer {
	return s.renderer
}

// CleanupExpired drops workspaces idle for longer than the session TTL and
// returns how many were removed. Workspaces with a reply in flight are kept.
func (s *AssistantService) CleanupExpired(now time.Time) int {
	if s.config.Session.TTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.config.Session.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, ws := range s.workspaces {
		if ws.Chat.State() == chat.StateAwaitingReply {
			continue
		}
		if ws.LastSeen().Before(cutoff) {
			delete(s.workspaces, id)
			removed++
			logger.Infof("Cleaned up expired workspace: %s", id)
		}
	}
	return removed
}

func (s *AssistantService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Session.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.CleanupExpired(now)
		case <-s.stop:
			return
		}
	}
}

func (s *AssistantService) backupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Storage.BackupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.storage.Backup(); err != nil {
				logger.Errorf("Storage backup failed: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

// Close stops the background loops and closes the storage.
func (s *AssistantService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.storage.Close()
}
