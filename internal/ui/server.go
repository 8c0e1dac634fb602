// Package ui serves the region dashboard: the map page, the region pages and
// the operational endpoints. With watching enabled it rebuilds the region
// table when input files change and pushes the result to open pages.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/regionmap/internal/dataset"
	"github.com/leapstack-labs/regionmap/internal/loader"
	"github.com/leapstack-labs/regionmap/internal/metrics"
	"github.com/leapstack-labs/regionmap/internal/ui/notifier"
	"github.com/leapstack-labs/regionmap/internal/ui/router"
	"golang.org/x/sync/errgroup"
)

// TriggerReload labels rebuilds started by the file watcher.
const TriggerReload = "reload"

const debounceDelay = 100 * time.Millisecond

// watchedExts are the input file types a change to triggers a rebuild.
var watchedExts = []string{".csv", loader.RegionExt}

// Config holds configuration for the dashboard server.
type Config struct {
	Addr  string
	Watch bool
	// SessionSecret signs the session cookie; a random key is used when empty.
	SessionSecret string
	// Runner rebuilds the table on reload. Its Config names the watched inputs.
	Runner   *dataset.Runner
	Snapshot *dataset.Snapshot
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Server is the dashboard server.
type Server struct {
	cfg          Config
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	logger       *slog.Logger

	reloadMu sync.Mutex
}

// NewServer creates a new dashboard server.
func NewServer(cfg Config) *Server {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	return &Server{
		cfg:          cfg,
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		logger:       logger,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		s.cfg.Metrics.Middleware,
		middleware.Compress(5),
	)
	router.SetupRoutes(r, router.Deps{
		Snapshot:     s.cfg.Snapshot,
		Notifier:     s.notifier,
		Metrics:      s.cfg.Metrics,
		SessionStore: s.sessionStore,
	})
	return r
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting dashboard server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.Runner != nil {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Reload rebuilds the table, swaps it in when the build succeeds and tells
// open pages either way. Concurrent calls run one at a time.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	_, err := s.cfg.Runner.Refresh(ctx, s.cfg.Snapshot, TriggerReload)
	ev := notifier.Event{Version: s.cfg.Snapshot.Version()}
	if err != nil {
		ev.Err = err.Error()
	}
	s.notifier.Broadcast(ev)
	return err
}

// watchFiles rebuilds the table when an input file changes.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range watchDirs(s.cfg.Runner.Config) {
		if err := watchDirRecursive(watcher, dir); err != nil {
			s.logger.Error("failed to watch input directory", "dir", dir, "error", err)
		}
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !slices.Contains(watchedExts, filepath.Ext(event.Name)) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.logger.Debug("input changed, rebuilding region table", "file", event.Name)
				_ = s.Reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirs lists the directories holding the inputs of cfg, without
// duplicates or directories nested in one already listed.
func watchDirs(cfg dataset.Config) []string {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = loader.DefaultDataDir
	}
	candidates := []string{dataDir}
	if cfg.RegionsDir != "" {
		candidates = append(candidates, cfg.RegionsDir)
	}
	for _, p := range []string{cfg.OrganizationsPath, cfg.AnalyticPath} {
		if p != "" {
			candidates = append(candidates, filepath.Dir(p))
		}
	}

	var dirs []string
	for _, c := range candidates {
		c = filepath.Clean(c)
		if !slices.ContainsFunc(dirs, func(d string) bool { return within(d, c) }) {
			dirs = append(dirs, c)
		}
	}
	return dirs
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
