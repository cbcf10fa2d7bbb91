package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/repack/internal/config"
	"github.com/mattjoyce/repack/internal/convert"
	"github.com/mattjoyce/repack/internal/doctor"
	"github.com/mattjoyce/repack/internal/journal"
	"github.com/mattjoyce/repack/internal/lock"
	"github.com/mattjoyce/repack/internal/log"
	"github.com/mattjoyce/repack/internal/retain"
	"github.com/mattjoyce/repack/internal/run"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "doctor":
		os.Exit(runDoctor(args))
	case "history":
		os.Exit(runHistory(args))
	case "version":
		fmt.Printf("repack version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		// Help is never a successful no-op run.
		printUsage()
		os.Exit(1)
	default:
		// No subcommand: everything is flags and input paths.
		os.Exit(runConvert(os.Args[1:]))
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `repack - normalize archives into .xz / .tar.xz form

Usage:
  repack [-n|--no-backup] [--config PATH] <path> [<path>...]
  repack <command> [flags]

Converts each path to its canonical compressed form using the best
available settings. Originals are moved into an OldArchives directory in
the current working directory unless --no-backup is given.

Commands:
  doctor     Check that required backend tools are installed
  history    Show recent conversions from the journal
  version    Show version information
  help       Show this help message

Flags:
  -n, --no-backup   Delete originals after successful conversion
      --config      Path to configuration file
`)
}

func runConvert(args []string) int {
	var configPath string
	var noBackup, noBackupShort bool

	fs := flag.NewFlagSet("repack", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&noBackup, "no-backup", false, "Delete originals instead of backing them up")
	fs.BoolVar(&noBackupShort, "n", false, "Delete originals instead of backing them up")
	fs.Usage = printUsage

	if err := fs.Parse(args); err != nil {
		return 1
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		printUsage()
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.LogLevel, cfg.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("repack starting", "version", version, "inputs", len(inputs))

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve working directory: %v\n", err)
		return 1
	}

	runLock, err := lock.Acquire(workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to acquire run lock: %v\n", err)
		return 1
	}
	defer runLock.Release()

	var jnl *journal.Journal
	if cfg.Journal.Path != "" {
		jnl, err = journal.Open(context.Background(), cfg.Journal.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
			return 1
		}
		defer jnl.Close()
	}

	engine := convert.New(cfg)
	policy := retain.NewPolicy(workDir, cfg.Backup.Dir)
	runner := run.New(cfg, engine, policy, jnl)
	runner.Backup = !(noBackup || noBackupShort)

	// Backend tools are a batch-level precondition: nothing is touched
	// until every tool this run needs resolves.
	if err := runner.Preflight(inputs); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, runErr := runner.Run(ctx, inputs)

	fmt.Print(renderSummary(reports))

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Run aborted: %v\n", runErr)
		return 1
	}
	for _, r := range reports {
		if !r.OK {
			return 1
		}
	}
	return 0
}

func runDoctor(args []string) int {
	var configPath string
	var jsonOut bool

	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	doc := doctor.New(cfg)
	result := doc.Check(doctor.AllTools)

	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runHistory(args []string) int {
	var configPath string
	var limit int

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.IntVar(&limit, "n", 20, "Number of entries to show")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if cfg.Journal.Path == "" {
		fmt.Fprintln(os.Stderr, "Journal is not enabled; set journal.path in the configuration.")
		return 1
	}

	jnl, err := journal.Open(context.Background(), cfg.Journal.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer jnl.Close()

	entries, err := jnl.Recent(context.Background(), limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read journal: %v\n", err)
		return 1
	}

	fmt.Print(renderHistory(entries))
	return 0
}
