package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gestionale/backend/internal/application/importing"
	"github.com/gestionale/backend/internal/infrastructure/config"
	"github.com/gestionale/backend/internal/infrastructure/fatturapa"
	"github.com/gestionale/backend/internal/infrastructure/logger"
	"github.com/gestionale/backend/internal/infrastructure/migration"
	"github.com/gestionale/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	var (
		side           string
		year           int
		month          int
		root           string
		migrationsPath string
		logLevel       string
	)

	now := time.Now()
	flag.StringVar(&side, "side", "sales", "Import side: sales or purchases")
	flag.IntVar(&year, "year", now.Year(), "Year of the month folder")
	flag.IntVar(&month, "month", int(now.Month()), "Month of the month folder (1-12)")
	flag.StringVar(&root, "root", "", "Import root directory (default: import.root from configuration)")
	flag.StringVar(&migrationsPath, "migrations", "migrations", "Path to migrations directory; empty skips schema upgrade")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if root == "" {
		root = cfg.Import.Root
	}
	if root == "" {
		log.Fatal("No import root configured; pass -root or set import.root")
	}

	importSide := importing.SideSales
	switch side {
	case "sales":
	case "purchases":
		importSide = importing.SidePurchases
	default:
		log.Fatal("Invalid side", zap.String("side", side))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log, gormlogger.Warn))
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	if _, statErr := os.Stat(migrationsPath); migrationsPath != "" && statErr == nil {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get underlying connection", zap.Error(err))
		}
		migrator, err := migration.New(sqlDB, migrationsPath, log)
		if err != nil {
			log.Fatal("Failed to initialize migrator", zap.Error(err))
		}
		if err := migrator.Up(); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	svc := importing.NewService(
		fatturapa.NewParser(),
		persistence.NewGormSubjectRepository(db.DB),
		persistence.NewGormDocumentRepository(db.DB),
		persistence.NewGormRibaRepository(db.DB),
		root,
		log,
	)

	result, err := svc.ImportMonth(context.Background(), importSide, year, month)
	if err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d document(s), skipped %d, %d error(s)\n",
		len(result.Imported), result.Skipped, len(result.Errors))
	for _, inv := range result.Imported {
		fmt.Printf("  %s  %-6s %-30s n.%s  %s\n",
			inv.File, inv.SubjectCode, inv.SubjectName, inv.Number, inv.Total)
	}
	if len(result.WithDeclaration) > 0 {
		fmt.Printf("Documents with declaration of intent (pending linking): %d\n", len(result.WithDeclaration))
		for _, inv := range result.WithDeclaration {
			fmt.Printf("  %s n.%s\n", inv.SubjectCode, inv.Number)
		}
	}
	for _, fe := range result.Errors {
		fmt.Printf("  ERROR %s: %v\n", fe.File, fe.Err)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
