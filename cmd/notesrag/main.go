package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"notesrag/internal/config"
	"notesrag/internal/document"
	"notesrag/internal/domain"
	"notesrag/internal/library"
	"notesrag/internal/logger"
	"notesrag/internal/tui"
)

const usage = `Usage: notesrag [--config=config.yaml] <command> [args]

Commands:
  add FILE...      copy files into the library
  list [TERM]      list documents, optionally filtered by name
  rm ID            remove a document
  clear            remove every document and the vector store cache
  ask QUESTION     process the library and answer one question
  chat             process the library and open the chat UI (default)
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/notesrag/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	cmd := "chat"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development}
	if cmd == "chat" {
		// The TUI owns the terminal.
		logCfg.OutputPath = cfg.Log.File
	}
	zl, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if key := os.Getenv(cfg.Library.PDFLicenseKeyEnv); key != "" {
		if err := document.SetPDFLicense(key); err != nil {
			zl.Warn("pdf license rejected", zap.Error(err))
		}
	}

	lib, err := library.Open(cfg.Library.DBPath, cfg.Library.DocsDir)
	if err != nil {
		zl.Fatal("failed to open library", zap.String("db", cfg.Library.DBPath), zap.Error(err))
	}
	defer lib.Close()

	ctx := context.Background()
	if err := run(ctx, cmd, args, cfg, lib, zl); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = zl.Sync()
		lib.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, cfg *config.AppConfig, lib *library.Library, zl *zap.Logger) error {
	switch cmd {
	case "add":
		return addFiles(ctx, lib, args, zl)
	case "list":
		return listDocuments(ctx, lib, strings.Join(args, " "))
	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("rm takes exactly one document ID")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid document ID %q", args[0])
		}
		if err := lib.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Removed document %d\n", id)
		return nil
	case "clear":
		svc, err := newService(cfg, lib, zl)
		if err != nil {
			return err
		}
		if err := svc.ClearLibrary(ctx); err != nil {
			return err
		}
		fmt.Println("Library cleared")
		return nil
	case "ask":
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("ask needs a question")
		}
		svc, err := newService(cfg, lib, zl)
		if err != nil {
			return err
		}
		if _, err := svc.ProcessLibrary(ctx); err != nil {
			return err
		}
		turns, err := svc.Ask(ctx, question)
		if err != nil {
			return err
		}
		if len(turns) == 0 || turns[len(turns)-1].User {
			return fmt.Errorf("no answer: the question could not be embedded")
		}
		fmt.Println(turns[len(turns)-1].Content)
		return nil
	case "chat":
		svc, err := newService(cfg, lib, zl)
		if err != nil {
			return err
		}
		fmt.Println("Processing library...")
		summary, err := svc.ProcessLibrary(ctx)
		if err != nil {
			return err
		}
		stats, err := lib.Stats(ctx)
		if err != nil {
			return err
		}
		header := fmt.Sprintf("%d documents, %s, %d chunks", stats.Documents, stats.SizeMB(), svc.Chunks())
		_, err = tea.NewProgram(tui.New(svc, header, summary), tea.WithAltScreen()).Run()
		return err
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func addFiles(ctx context.Context, lib *library.Library, files []string, zl *zap.Logger) error {
	if len(files) == 0 {
		return fmt.Errorf("add needs at least one file")
	}
	added := 0
	for _, f := range files {
		doc, err := lib.Import(ctx, f)
		if err != nil {
			zl.Warn("could not add document", zap.String("file", f), zap.Error(err))
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", f, err)
			continue
		}
		added++
		fmt.Printf("Added %d\t%s\n", doc.ID, doc.Name)
	}
	if added == 0 {
		return fmt.Errorf("no documents added")
	}
	return nil
}

func listDocuments(ctx context.Context, lib *library.Library, term string) error {
	var docs []domain.Document
	var err error
	if term != "" {
		docs, err = lib.Search(ctx, term)
	} else {
		docs, err = lib.List(ctx)
	}
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents in library")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%d\t%s\t%s\n", d.ID, d.UploadedAt.Format("2006-01-02 15:04"), d.Name)
	}
	return nil
}
