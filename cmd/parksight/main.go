package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/parksight/parksight/internal/config"
	"github.com/parksight/parksight/internal/export"
	"github.com/parksight/parksight/internal/gemini"
	"github.com/parksight/parksight/internal/kb"
	"github.com/parksight/parksight/internal/pipeline"
	"github.com/parksight/parksight/internal/rag"
	"github.com/parksight/parksight/internal/store"
	"github.com/parksight/parksight/internal/vectorize"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("parksight %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help", "":
			usage()
			return
		}
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Optional; environment variables win over the file.
	_ = godotenv.Load()

	log := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "vectorize":
		err = runVectorize(ctx, log, os.Args[2:])
	case "ingest":
		err = runIngest(ctx, log, os.Args[2:])
	case "chat":
		err = runChat(ctx, log, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

func usage() {
	fmt.Println("parksight - surface parking lot detection and analytics")
	fmt.Println()
	fmt.Println("Usage: parksight <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  vectorize    Convert mask tiles to a GeoJSON lot collection")
	fmt.Println("  ingest       Build the RAG knowledge base from lot data")
	fmt.Println("  chat         Interactive advisor over the knowledge base")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PARKSIGHT_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  GEMINI_API_KEY               API key for ingest and chat")
	fmt.Println("  DATABASE_URL                 Postgres DSN for --store")
	fmt.Println("  OVERPASS_URL                 Alternate Overpass endpoint")
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		TimestampFormat: "2006-01-02 15:04:05",
		FieldsOrder:     []string{"run_id", "component", "tile"},
	})
	if os.Getenv("PARKSIGHT_LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// runVectorize runs the mask-to-GeoJSON pipeline and optionally
// mirrors the result into Postgres.
func runVectorize(ctx context.Context, log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("vectorize", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON configuration")
	tilesDir := fs.String("tiles", "", "tiles directory (overrides config)")
	output := fs.String("out", "", "output GeoJSON path (overrides config)")
	toStore := fs.Bool("store", false, "also write lots to Postgres (DATABASE_URL)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if *tilesDir != "" {
		cfg.Paths.TilesDir = *tilesDir
	}
	if *output != "" {
		cfg.Paths.OutputGeoJSON = *output
	}
	if cfg.Paths.TilesDir == "" || cfg.Paths.OutputGeoJSON == "" {
		return fmt.Errorf("tiles directory and output path are required (flags or config)")
	}

	tiles, err := pipeline.LoadTiles(cfg.Paths.TilesDir)
	if err != nil {
		return err
	}
	lots, err := pipeline.New(cfg, log).Run(ctx, tiles)
	if err != nil {
		return err
	}
	if err := export.Save(lots, cfg.Paths.OutputGeoJSON); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"lots": len(lots), "path": cfg.Paths.OutputGeoJSON}).
		Info("collection written")

	if *toStore {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("--store requires DATABASE_URL")
		}
		st, err := store.Open(dsn)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := st.ReplaceLots(ctx, lots); err != nil {
			return err
		}
		log.Info("lots stored")
	}
	return nil
}

// runIngest builds the knowledge base index from a lot collection and
// the external sources.
func runIngest(ctx context.Context, log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	lotsPath := fs.String("lots", "", "GeoJSON lot collection to summarize")
	indexPath := fs.String("index", "vector_db/index.json", "output index path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	collection, err := loadLots(*lotsPath)
	if err != nil {
		return err
	}

	engine, err := gemini.New(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		return err
	}
	defer engine.Close()

	builder := kb.NewBuilder(
		kb.NewWikipediaClient(),
		kb.NewAmenityFetcher(os.Getenv("OVERPASS_URL")),
		engine,
		log,
	)
	index, err := builder.Build(ctx, kb.DefaultNeighborhoods, collection)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*indexPath), 0o755); err != nil {
		return err
	}
	if err := index.Save(*indexPath); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"documents": index.Len(), "path": *indexPath}).
		Info("knowledge base written")
	return nil
}

// loadLots reads the lot collection when a path is given; the
// knowledge base can be built without one, it just loses the parking
// summary document.
func loadLots(path string) ([]vectorize.Lot, error) {
	if path == "" {
		return nil, nil
	}
	return export.Load(path)
}

// runChat answers questions over a built index on stdin/stdout.
func runChat(ctx context.Context, log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	indexPath := fs.String("index", "vector_db/index.json", "knowledge base index path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	index, err := rag.LoadIndex(*indexPath)
	if err != nil {
		return err
	}
	engine, err := gemini.New(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		return err
	}
	defer engine.Close()

	retriever := rag.NewRetriever(engine, index)
	if !retriever.Healthy() {
		return fmt.Errorf("index %s is empty, run ingest first", *indexPath)
	}
	bot := rag.NewChatbot(retriever, engine)

	fmt.Println("parksight advisor - ask about Atlanta locations (ctrl-d to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		answer, err := bot.Reply(ctx, question)
		if err != nil {
			log.WithError(err).Error("reply failed")
			continue
		}
		fmt.Println(answer)
		fmt.Println()
	}
	return scanner.Err()
}
