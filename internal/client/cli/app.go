package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dpetrenko/filekeeper/internal/client/api"
	"github.com/dpetrenko/filekeeper/internal/client/blobstore"
	"github.com/dpetrenko/filekeeper/internal/client/config"
	"github.com/dpetrenko/filekeeper/internal/client/db"
	"github.com/dpetrenko/filekeeper/internal/client/registry"
	"github.com/dpetrenko/filekeeper/internal/client/upload"
	"github.com/dpetrenko/filekeeper/internal/filex"
	"github.com/dpetrenko/filekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	conn    *sql.DB
	api     api.Client
	manager *upload.Manager
	rec     *upload.Reconciler
	Mode    Mode
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if err := filex.EnsureDir(c.DataDir); err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, filepath.Join(c.DataDir, "client.db"))
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	store, err := blobstore.NewFileStore(filepath.Join(c.DataDir, "blobs"))
	if err != nil {
		conn.Close()
		return nil, err
	}

	repo := registry.NewSQLiteRepository(conn)
	reg, err := registry.New(ctx, repo, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	apiClient := api.NewRestyClient(c.BackendURL, c.RequestTimeout)

	bus := upload.NewBus()
	engine := upload.NewEngine(&http.Client{}, logger)
	manager := upload.NewManager(store, reg, apiClient, bus, engine, logger, upload.Config{
		MaxFileSizeBytes: c.MaxFileSizeBytes,
		AutoResumeLimit:  c.AutoResumeLimit,
	})

	rec := upload.NewReconciler(manager, c.ReconcileInterval, c.StaleGrace, logger)

	return &App{
		config:  c,
		conn:    conn,
		api:     apiClient,
		manager: manager,
		rec:     rec,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

// StartOnlineStatusWatcher probes the backend on interval and flips the
// displayed mode. Regaining connectivity kicks the reconciler, so pending
// uploads resume without waiting for the next scheduled pass.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.api.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.Mode != ModeOffline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ModeOnline)
					a.rec.Kick()
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.rec.Run(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.ReconcileInterval)
	go a.watchEvents(ctx)

	a.Root(ctx)

	a.manager.Close()
	if err := a.conn.Close(); err != nil {
		log.Printf("closing database: %s", err.Error())
	}
}

// watchEvents mirrors upload lifecycle events onto the terminal.
func (a *App) watchEvents(ctx context.Context) {
	events, cancel := a.manager.Events().Subscribe()
	defer cancel()

	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case upload.EventProgress:
				log.Printf("upload %s: %.0f%%", ev.ID, ev.Percent)
			case upload.EventStateChange:
				log.Printf("upload %s: %s", ev.ID, ev.Status)
			case upload.EventCompleted:
				log.Printf("upload %s: done", ev.ID)
			}
		case <-ctx.Done():
			return
		}
	}
}
