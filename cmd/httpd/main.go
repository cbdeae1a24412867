// Command httpd serves a directory over a minimal HTTP/1.1 dialect with one
// pre-forked worker per CPU. "httpd get <path>" fetches from a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/nczempin/httpd-go-uring/client"
	"github.com/nczempin/httpd-go-uring/config"
	"github.com/nczempin/httpd-go-uring/resolver"
	"github.com/nczempin/httpd-go-uring/server"
	"github.com/nczempin/httpd-go-uring/supervisor"
	"github.com/nczempin/httpd-go-uring/transport"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "get":
			os.Exit(runGet(args[1:]))
		case "serve":
			args = args[1:]
		}
	}
	os.Exit(runServe(args))
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("httpd", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file (.toml, .yaml or .yml)")
	host := fs.String("host", "", "Listen address")
	port := fs.Int("port", 0, "Listen port")
	workers := fs.Int("workers", 0, "Number of workers (0 = one per CPU)")
	mode := fs.String("mode", "", "Worker mode: process or goroutine")
	engine := fs.String("engine", "", "I/O engine: net, iouring or gouring")
	root := fs.String("root", "", "Directory to serve")
	sortListing := fs.Bool("sort", false, "Sort directory listings by name")
	logLevel := fs.String("log-level", "", "Log level")
	logFormat := fs.String("log-format", "", "Log format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// Explicit flags win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "workers":
			cfg.Workers = *workers
		case "mode":
			cfg.Mode = *mode
		case "engine":
			cfg.Engine = *engine
		case "root":
			cfg.Root = *root
		case "sort":
			cfg.SortListing = *sortListing
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := cfg.Logger()
	if err := resolver.RegisterTypes(cfg.MimeTypes); err != nil {
		log.WithError(err).Error("Unable to register MIME types")
		return 1
	}

	if supervisor.IsChild() {
		return runChild(cfg, log)
	}
	return runPrimary(cfg, log)
}

// runChild is one pre-forked worker. It never stops on its own; the default
// SIGTERM action ends it, in flight or not.
func runChild(cfg *config.Config, log *logrus.Logger) int {
	id := supervisor.WorkerID()
	entry := log.WithFields(logrus.Fields{
		"pid":    os.Getpid(),
		"worker": id,
	})

	if err := serve(context.Background(), cfg, entry); err != nil {
		entry.WithError(err).Error("worker failed")
		return 1
	}
	return 0
}

func runPrimary(cfg *config.Config, log *logrus.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entry := log.WithField("pid", os.Getpid())
	n := supervisor.Workers(cfg.Workers)
	banner(cfg, n)

	sup := &supervisor.Supervisor{
		Workers: cfg.Workers,
		Mode:    supervisor.Mode(cfg.Mode),
		Log:     entry,
		Run: func(ctx context.Context, id int) error {
			return serve(ctx, cfg, entry.WithField("worker", id))
		},
	}

	if err := sup.Start(ctx); err != nil {
		entry.WithError(err).Error("server stopped")
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, entry *logrus.Entry) error {
	opts := cfg.ServerOptions()
	h := server.NewHandler(cfg.Resolver(), entry)
	return server.ListenAndServe(ctx, opts, h, entry)
}

func banner(cfg *config.Config, workers int) {
	bold := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	bold.Fprintf(os.Stderr, "httpd serving %s\n", cfg.Root)
	dim.Fprintf(os.Stderr, "  address  http://%s/\n", cfg.Endpoint())
	dim.Fprintf(os.Stderr, "  workers  %d (%s)\n", workers, cfg.Mode)
	dim.Fprintf(os.Stderr, "  engine   %s\n", cfg.Engine)
}

func runGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	addr := fs.String("addr", transport.DefaultEndpoint.String(), "Server address")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: httpd get [-addr host:port] <path>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	host, portStr, err := net.SplitHostPort(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid address %q: %v\n", *addr, err)
		return 2
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port %q\n", portStr)
		return 2
	}

	resp, err := client.NewHttpClient(transport.NewTcpTransport()).Get(host, port, fs.Arg(0))
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		return 1
	}

	status := color.New(color.FgGreen)
	if resp.StatusCode != 200 {
		status = color.New(color.FgRed)
	}
	status.Fprintf(os.Stderr, "%d %s\n", resp.StatusCode, resp.StatusMessage)
	os.Stdout.Write(resp.Body)

	if resp.StatusCode != 200 {
		return 1
	}
	return 0
}
