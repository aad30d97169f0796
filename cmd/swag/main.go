package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MensaSverige/swagapp-sub001/app"
	"github.com/MensaSverige/swagapp-sub001/internal/config"
	"github.com/MensaSverige/swagapp-sub001/internal/logger"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var banner bool

	root := &cobra.Command{
		Use:           "swag",
		Short:         "Member events and live locations from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if banner {
				displayAppname(cmd.Root().Name())
			}
		},
	}
	root.PersistentFlags().BoolVar(&banner, "banner", false, "print the app banner")

	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newNearbyCmd())
	root.AddCommand(newWatchCmd())
	return root
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.New(cfg.GetEnv()))
}

// startApp loads the app and validates stored credentials. An unreachable server
// is reported but does not stop the command.
func startApp(cmd *cobra.Command) (*app.App, error) {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := a.Start(cmd.Context()); err != nil {
		printUserError(cmd, err)
	}
	return a, nil
}

func waitForStopSignal(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func newMetricsServer(addr string, metrics http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics)
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Metrics listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
