package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmehdipour/growth-tracker/internal/config"
	"github.com/jmehdipour/growth-tracker/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables) for both stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := runMigration(cfg.MeasurementDB, filepath.Join("migrations", "001_measurements.sql")); err != nil {
			return err
		}
		if err := runMigration(cfg.ProfileDB, filepath.Join("migrations", "002_child_profiles.sql")); err != nil {
			return err
		}

		fmt.Println(">> Migration complete")
		return nil
	},
}

func runMigration(dbCfg config.DatabaseConfig, sqlPath string) error {
	sqlDB, err := db.NewMySQLConnection(dbCfg.DSN, db.MySQLOpts{
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
		ConnMaxIdleTime: dbCfg.ConnMaxIdleTime,
		PingTimeout:     dbCfg.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sqlDB.Close()

	sqlBytes, err := os.ReadFile(sqlPath)
	if err != nil {
		return fmt.Errorf("read migration file %s: %w", sqlPath, err)
	}

	// one statement per Exec; the driver rejects multi-statement strings
	for _, stmt := range strings.Split(string(sqlBytes), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := sqlDB.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration %s: %w", sqlPath, err)
		}
	}
	return nil
}
