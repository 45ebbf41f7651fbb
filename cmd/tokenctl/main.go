package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/config"
	"assessmentlinks/internal/database"
	"assessmentlinks/internal/importer"
	"assessmentlinks/internal/logging"
	"assessmentlinks/internal/repository"
	"assessmentlinks/internal/service"
)

const (
	kindRegistrations = "registrations"
	kindLeaders       = "leaders"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	purgeCmd := flag.NewFlagSet("purge-sessions", flag.ExitOnError)

	// Export flags
	exportKind := exportCmd.String("kind", kindRegistrations, "Token kind: registrations or leaders")
	exportOutput := exportCmd.String("output", "", "Output file path (default: <kind>_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importKind := importCmd.String("kind", kindRegistrations, "Token kind: registrations or leaders")
	importInput := importCmd.String("input", "", "Input file path (required)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt when replacing registration tokens")

	// Generate flags
	generateKind := generateCmd.String("kind", kindRegistrations, "Token kind: registrations or leaders")
	generateInput := generateCmd.String("input", "", "Spreadsheet (.xlsx) path (required)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	registrations := repository.NewRegistrationRepository(db)
	leaders := repository.NewLeaderRepository(db)
	backupService := service.NewBackupService(registrations, leaders, logger)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = handleExport(ctx, backupService, *exportKind, *exportOutput, logger)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = handleImport(ctx, backupService, *importKind, *importInput, *importYes, logger)

	case "generate":
		generateCmd.Parse(os.Args[2:])
		if *generateInput == "" {
			fmt.Println("Error: -input flag is required")
			generateCmd.PrintDefaults()
			os.Exit(1)
		}
		destinations := service.NewDestinations(cfg.ArchetypeSelfURL, cfg.ArchetypeTeamURL, cfg.MicroclimateTeamURL)
		tokens := service.NewTokenService(registrations, leaders, destinations, cfg.TokenTTL, logger, nil)
		err = handleGenerate(ctx, tokens, importer.New(cfg.ImportMaxRows), *generateKind, *generateInput, logger)

	case "purge-sessions":
		purgeCmd.Parse(os.Args[2:])
		var n int64
		n, err = repository.NewSessionRepository(db).DeleteExpired(ctx, time.Now())
		if err == nil {
			logger.Info("expired leader sessions purged", zap.Int64("deleted", n))
		}

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal(os.Args[1]+" failed", zap.Error(err))
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, kind, outputPath string, logger *zap.Logger) error {
	export, err := exporterFor(backupService, kind)
	if err != nil {
		return err
	}

	// Generate default filename if not provided
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s_%s.json", kind, time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	n, err := export(ctx, f)
	if err != nil {
		return err
	}
	logger.Info("export complete", zap.String("kind", kind), zap.Int("tokens", n), zap.String("output", outputPath))
	return nil
}

func exporterFor(backupService *service.BackupService, kind string) (func(context.Context, io.Writer) (int, error), error) {
	switch kind {
	case kindRegistrations:
		return backupService.ExportRegistrations, nil
	case kindLeaders:
		return backupService.ExportLeaders, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func handleImport(ctx context.Context, backupService *service.BackupService, kind, inputPath string, skipConfirm bool, logger *zap.Logger) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var result service.IssueResult
	switch kind {
	case kindRegistrations:
		if !skipConfirm && !confirm("WARNING: This replaces every registration token. Type 'yes' to confirm: ") {
			logger.Info("import cancelled")
			return nil
		}
		result, err = backupService.ImportRegistrations(ctx, f)
	case kindLeaders:
		result, err = backupService.ImportLeaders(ctx, f)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return err
	}

	logger.Info("import complete",
		zap.String("kind", kind),
		zap.Int("imported", result.Created),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("duplicates", result.Duplicates))
	return nil
}

func handleGenerate(ctx context.Context, tokens *service.TokenService, reader *importer.Reader, kind, inputPath string, logger *zap.Logger) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var result service.IssueResult
	switch kind {
	case kindRegistrations:
		rows, err := reader.ReadRegistrationRows(f)
		if err != nil {
			return err
		}
		result, err = tokens.IssueRegistrationBatch(ctx, rows)
		if err != nil {
			return err
		}
	case kindLeaders:
		rows, err := reader.ReadLeaderRows(f)
		if err != nil {
			return err
		}
		result, err = tokens.IssueLeaderBatch(ctx, rows)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	for _, s := range result.Skipped {
		logger.Warn("row skipped", zap.Int("line", s.Line), zap.String("reason", s.Reason))
	}
	logger.Info("tokens generated",
		zap.String("kind", kind),
		zap.Int("created", result.Created),
		zap.Int("duplicates", result.Duplicates))
	for _, t := range result.Tokens {
		fmt.Println(t)
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	var answer string
	fmt.Scanln(&answer)
	return answer == "yes"
}

func printUsage() {
	fmt.Println("Token maintenance tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tokenctl export [-kind registrations|leaders] [-output file.json]")
	fmt.Println("  tokenctl import [-kind registrations|leaders] -input file.json [-yes]")
	fmt.Println("  tokenctl generate [-kind registrations|leaders] -input sheet.xlsx")
	fmt.Println("  tokenctl purge-sessions")
	fmt.Println()
	fmt.Println("Import accepts the legacy tokens.json format for registration tokens.")
	fmt.Println("Configuration is read from the environment (and .env) like the server.")
}
