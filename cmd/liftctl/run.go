package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lift-controller/internal/api"
	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/config"
	"github.com/banshee-data/lift-controller/internal/db"
	"github.com/banshee-data/lift-controller/internal/monitoring"
	"github.com/banshee-data/lift-controller/internal/serialmux"
	"github.com/banshee-data/lift-controller/internal/sim"
)

// mockInputInterval is how often the simulated board repeats its input frame.
const mockInputInterval = 250 * time.Millisecond

type runFlags struct {
	port    string
	listen  string
	name    string
	noTrace bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the controller from a board link and serve the HTTP API",
		Long: `Runs the controller in real time. Inputs come from the board link
(a serial device, "mock" for the simulated board, or "none" to drive the
controller over HTTP only). Output frames are written back to the link and
floor changes and reset edges are recorded to the trace database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if f.port != "" {
				cfg.SerialPort = &f.port
			}
			if f.listen != "" {
				cfg.Listen = &f.listen
			}
			if f.noTrace {
				empty := ""
				cfg.DBPath = &empty
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runController(ctx, cfg, f.name)
		},
	}
	cmd.Flags().StringVar(&f.port, "port", "", `board link: device path, "mock" or "none"`)
	cmd.Flags().StringVar(&f.listen, "listen", "", "HTTP listen address")
	cmd.Flags().StringVar(&f.name, "name", "live", "run name recorded in the trace database")
	cmd.Flags().BoolVar(&f.noTrace, "no-trace", false, "do not record the run")
	return cmd
}

// openLink opens the board link named by cfg. For the simulated board it
// also returns the mock port so host-side input changes can reach it.
func openLink(cfg *config.BoardConfig) (serialmux.SerialMuxInterface, *serialmux.MockBoardPort, error) {
	switch port := cfg.GetSerialPort(); port {
	case config.PortMock:
		m, mockPort := serialmux.NewMockSerialMux(board.Inputs{}, mockInputInterval)
		return m, mockPort, nil
	case config.PortNone:
		return serialmux.NewDisabledSerialMux(), nil, nil
	default:
		m, err := serialmux.NewRealSerialMux(port, cfg.GetSerial())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open board link %s: %w", port, err)
		}
		return m, nil, nil
	}
}

func runController(ctx context.Context, cfg *config.BoardConfig, name string) error {
	floors, segments, err := tables(cfg)
	if err != nil {
		return err
	}
	top, err := board.New(floors, segments)
	if err != nil {
		return err
	}

	link, mockPort, err := openLink(cfg)
	if err != nil {
		return err
	}
	defer link.Close()
	if err := link.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize board: %w", err)
	}
	monitoring.Logf("board link %s initialized", cfg.GetSerialPort())

	metrics := monitoring.NewMetrics()
	latch := sim.NewLatch(board.Inputs{})
	opts := sim.Options{
		FrameInterval: cfg.GetFrameInterval(),
		TimeScale:     cfg.GetTimeScale(),
		OutputRate:    cfg.GetOutputRateHz(),
		Sender:        link,
		Metrics:       metrics,
	}

	var store *db.DB
	var runID string
	if path := cfg.GetDBPath(); path != "" {
		store, err = db.NewDB(path)
		if err != nil {
			return fmt.Errorf("failed to open trace database: %w", err)
		}
		defer store.Close()

		run, err := store.StartRun(ctx, db.Run{
			Name:         name,
			Mode:         "live",
			Transitions:  floors.Name(),
			Segments:     segments.Name(),
			InitialFloor: floors.Initial(),
		})
		if err != nil {
			return err
		}
		runID = run.ID
		opts.Sinks = append(opts.Sinks, store.NewRecorder(runID))
		defer func() {
			if err := store.FinishRun(context.Background(), runID, time.Now()); err != nil {
				monitoring.Logf("failed to finish run %s: %v", runID, err)
			}
		}()
		monitoring.Logf("recording run %s to %s", runID, path)
	}

	runner := sim.NewRunner(top, latch, opts)
	srv := api.NewServer(link, runner, latch, store, metrics)
	srv.SetCurrentRun(runID)
	if mockPort != nil {
		srv.SetInputBoard(mockPort)
	}

	mux := srv.ServeMux()
	link.AttachAdminRoutes(mux)
	if store != nil {
		store.AttachAdminRoutes(mux)
	}
	server := &http.Server{
		Addr:              cfg.GetListen(),
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return ignoreCanceled(link.Monitor(ctx)) })
	eg.Go(func() error { return ignoreCanceled(sim.FollowBoard(ctx, link, latch)) })
	eg.Go(func() error { return ignoreCanceled(runner.Run(ctx)) })
	eg.Go(func() error {
		monitoring.Logf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
			return server.Close()
		}
		return nil
	})

	err = eg.Wait()
	monitoring.Logf("controller stopped")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
