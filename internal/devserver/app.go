package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sc "github.com/dpetrenko/filekeeper/internal/devserver/config"
	"github.com/dpetrenko/filekeeper/internal/logging"
)

type App struct {
	config *sc.Config
	logger logging.Logger
	server *Server
}

func NewApp(c *sc.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	var presigner Presigner
	if c.UseS3 {
		presigner = NewS3Presigner(c)
	} else {
		presigner = NewLocalPresigner(localBaseURL(c.EndpointAddr))
	}

	server, err := NewServer(c, presigner, logger)
	if err != nil {
		return nil, fmt.Errorf("server init error: %w", err)
	}

	return &App{config: c, logger: logger, server: server}, nil
}

// localBaseURL derives the URL clients reach this process at from the bind
// address. A bare ":8080" binds all interfaces but is advertised on
// loopback, which is what development setups want.
func localBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting development backend...", "addr", app.config.EndpointAddr, "s3", app.config.UseS3)

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
