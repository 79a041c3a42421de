package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WaylonWalker/lspcore/example/markdownls"
	"github.com/WaylonWalker/lspcore/pkg/config"
	"github.com/WaylonWalker/lspcore/pkg/lspcore"
)

var watchDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the markdownls example server on stdio",
	Long: `Serve starts the bundled markdownls language server, speaking
framed JSON-RPC over stdin/stdout, until the client sends exit or
stdin ends. SIGINT/SIGTERM cancel the context passed to running
handlers; they do not end the read loop.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&watchDir, "watch", "", "directory to watch for markdown file changes (optional)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}

	flags := log.LstdFlags
	if cfg.Verbose {
		flags |= log.Lshortfile
	}
	logger := log.New(os.Stderr, "[lspcore] ", flags)

	var traceFile *os.File
	if cfg.TraceFile != "" {
		traceFile, err = os.Create(cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer traceFile.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("shutting down...")
		cancel()
	}()

	server, router := markdownls.New(logger)
	svc, client, outbound := lspcore.NewService(router, logger)
	server.AttachClient(client)

	transport := lspcore.NewTransport(os.Stdin, os.Stdout, svc, client, outbound, logger)
	transport.Concurrency = cfg.Concurrency
	if traceFile != nil {
		transport.Trace = traceFile
	}

	if watchDir != "" {
		watcher, err := markdownls.NewWatcher(watchDir, client, logger)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer watcher.Close()
		go watcher.Run()
	}

	if err := transport.Run(ctx); err != nil {
		return fmt.Errorf("lsp server error: %w", err)
	}
	return nil
}
