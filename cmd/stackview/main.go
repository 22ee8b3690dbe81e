package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stackview/internal/logger"
	"stackview/pkg/config"
	"stackview/pkg/dispatch"
	"stackview/pkg/projection"
	"stackview/pkg/source"
	"stackview/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "FITS cube, multi-page TIFF, frame image, or directory of frame images")
	configPath := flag.String("config", "stackview.yaml", "YAML configuration file")
	operation := flag.String("op", "", "Operation to display (default from config)")
	outputPath := flag.String("output", "", "Write the projection to this .png, .jpg or .fits file and exit")
	serveAddr := flag.String("serve", "", "Serve the browser display on this address (default from config)")
	listOps := flag.Bool("list", false, "List the available operations and exit")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *listOps {
		for _, op := range projection.Operations() {
			fmt.Println(op)
		}
		return
	}

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Output.Verbose, cfg.Output.LogDir)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Close()

	if *operation == "" {
		*operation = cfg.Projection.DefaultOperation
	}
	defaultOp, err := projection.ParseOperation(*operation)
	if err != nil {
		lg.Error("Invalid operation: %v", err)
		os.Exit(1)
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		lg.Error("Invalid projection configuration: %v", err)
		os.Exit(1)
	}

	start := time.Now()
	stack, err := source.Open(*inputPath)
	if err != nil {
		lg.Error("Failed to load stack: %v", err)
		os.Exit(1)
	}
	lg.Info("Loaded %d frames of %dx%d (%s) from %s in %v",
		stack.Frames(), stack.Cols(), stack.Rows(), stack.Kind(), *inputPath, time.Since(start))

	ws, err := dispatch.NewWorkspace(stack, opts)
	if err != nil {
		lg.Error("Failed to create workspace: %v", err)
		os.Exit(1)
	}

	if *outputPath != "" {
		if err := writeProjection(ws, defaultOp, *outputPath); err != nil {
			lg.Error("%v", err)
			os.Exit(1)
		}
		lg.Info("%s written to %s", defaultOp, *outputPath)
		return
	}

	addr := *serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if err := serve(ws, defaultOp, addr, lg); err != nil {
		lg.Error("Server failed: %v", err)
		os.Exit(1)
	}
}

// engineOptions converts the projection section of cfg
func engineOptions(cfg *config.Config) (projection.Options, error) {
	base, err := projection.ParseOperation(cfg.Projection.FilterBase)
	if err != nil {
		return projection.Options{}, fmt.Errorf("filterBase: %w", err)
	}
	return projection.Options{
		Sigma:      cfg.Projection.Sigma,
		KernelSize: cfg.Projection.KernelSize,
		FilterBase: base,
	}, nil
}

// writeProjection renders op once to a file display
func writeProjection(ws *dispatch.Workspace, op projection.Operation, path string) error {
	display, err := visualization.NewFileDisplay(path)
	if err != nil {
		return err
	}
	if _, err := dispatch.New(ws, display, op); err != nil {
		return fmt.Errorf("failed to render %s: %w", op, err)
	}
	return nil
}

// serve runs the browser display until SIGINT or SIGTERM
func serve(ws *dispatch.Workspace, op projection.Operation, addr string, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	display := visualization.NewBrowserDisplay(lg)
	if _, err := dispatch.New(ws, display, op); err != nil {
		return err
	}
	go display.Run(ctx)

	srv := &http.Server{Addr: addr, Handler: display.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Warning("Shutdown: %v", err)
		}
	}()

	lg.Info("Serving %s on %s", op, addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
