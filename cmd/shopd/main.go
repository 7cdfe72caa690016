package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shopdemo/shopapi/config"
	"github.com/shopdemo/shopapi/internal/app"
	"github.com/shopdemo/shopapi/internal/shopapi"
	"github.com/shopdemo/shopapi/internal/webserver"
)

var (
	h        bool
	x        bool
	initdb   bool
	conffile string
	port     int
)

func init() {
	flag.BoolVar(&h, "h", false, "help usage")
	flag.BoolVar(&x, "x", false, "debug mode")
	flag.BoolVar(&initdb, "initdb", false, "drop and recreate the database schema, then exit")
	flag.StringVar(&conffile, "c", "", "config file, eg: /etc/shopd.yml")
	flag.IntVar(&port, "p", 0, "web port override")
}

func main() {
	flag.Parse()
	if h {
		flag.Usage()
		os.Exit(0)
	}

	cfg := config.LoadConfig(conffile)
	if x {
		cfg.System.Debug = true
		cfg.Database.Debug = true
	}
	if port > 0 {
		cfg.Web.Port = port
	}
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if initdb {
		application.InitDb()
		fmt.Println("database initialized")
		return
	}

	webserver.Init(cfg, application.DB())
	shopapi.Init(application)
	shopapi.InitRouter()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Listen()
	})
	g.Go(func() error {
		application.StartBackgroundJobs(ctx)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return webserver.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server stopped: %v", err)
	}
}
