// Command cluso-import loads a graph document from a local file into a
// data directory without running the server.
//
//	cluso-import -data ./data -graph social -format graphml -keys name=text people.graphml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/config"
	"github.com/dd0wney/cluso-ingest/pkg/events"
	"github.com/dd0wney/cluso-ingest/pkg/ingest"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
)

type options struct {
	graph       string
	format      string
	keys        string
	create      bool
	description string
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.graph, "graph", "", "Target graph id (required)")
	fs.StringVar(&o.format, "format", "", "Document format: "+fmt.Sprint(codec.DefaultRegistry().Formats()))
	fs.StringVar(&o.keys, "keys", "", "Search keys to provision, name=type[,name=type...]")
	fs.BoolVar(&o.create, "create", false, "Create the graph if it does not exist")
	fs.StringVar(&o.description, "description", "", "Description for a created graph")
}

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "cluso-import: %v\n", err)
	}
	os.Exit(code)
}

// run returns the process exit code: 0 committed, 1 import failed,
// 2 usage or setup error.
func run(args []string, stdin io.Reader, stdout io.Writer) (int, error) {
	var opts options
	cfg, fs, err := config.Parse("cluso-import", args, os.LookupEnv, opts.register)
	if err != nil {
		return 2, err
	}
	if opts.graph == "" || opts.format == "" || fs.NArg() != 1 {
		fs.Usage()
		return 2, errors.New("-graph, -format and exactly one file (or -) are required")
	}

	// stdout carries the result
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	logger, closeLog, err := cfg.NewLogger()
	if err != nil {
		return 2, err
	}
	defer closeLog()

	mgr, err := metagraph.Open(metagraph.Config{
		DataDir:     cfg.Storage.DataDir,
		CompressWAL: cfg.Storage.CompressWAL,
	}, logger)
	if err != nil {
		return 2, err
	}
	defer mgr.Close()

	if opts.create {
		if _, err := mgr.Create(opts.graph, opts.description); err != nil && !errors.Is(err, metagraph.ErrGraphExists) {
			return 2, err
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Address != "" {
		sock, err := events.ListenSocket(cfg.Events.Address, logger)
		if err != nil {
			return 2, err
		}
		defer sock.Close()
		publisher = sock
	}

	decoders := codec.DefaultRegistry()
	decoders.Register(codec.FormatFaunusGraphSON, codec.FaunusGraphSONDecoder{TempDir: cfg.Ingest.SpoolDir})

	orchestrator, err := ingest.NewOrchestrator(ingest.Config{
		Graphs:    mgr,
		Decoders:  decoders,
		Mode:      cfg.Mode(),
		BatchSize: cfg.Ingest.BatchSize,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return 2, err
	}

	body, err := openInput(fs.Arg(0), stdin)
	if err != nil {
		return 2, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := orchestrator.Import(ctx, ingest.Request{
		GraphID: opts.graph,
		Format:  opts.format,
		KeySpec: opts.keys,
		Body:    body,
	})
	if !res.OK() {
		logger.Error("import failed", logging.ImportID(res.ImportID), logging.Error(res.Err))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return 2, err
	}
	if !res.OK() {
		return 1, nil
	}
	return 0, nil
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}
