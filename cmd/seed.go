package cmd

import (
	"fmt"
	"log"

	"github.com/jmehdipour/growth-tracker/internal/config"
	"github.com/jmehdipour/growth-tracker/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the profile database with demo children",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.ProfileDB.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.ProfileDB.MaxOpenConns,
			MaxIdleConns:    cfg.ProfileDB.MaxIdleConns,
			ConnMaxLifetime: cfg.ProfileDB.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ProfileDB.ConnMaxIdleTime,
			PingTimeout:     cfg.ProfileDB.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo child profiles...")

		if err := seedProfiles(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// seedProfiles inserts two deterministic demo children (idempotent).
func seedProfiles(dbx *sqlx.DB) error {
	profiles := []struct {
		ChildID int64
		Name    string
		Age     int
		Height  float64
	}{
		{ChildID: 1, Name: "John", Age: 7, Height: 120.0},
		{ChildID: 2, Name: "Jane", Age: 10, Height: 140.0},
	}

	const q = `
INSERT INTO child_profiles
    (child_id, name, age, last_height, last_updated)
VALUES
    (?, ?, ?, ?, NOW())
ON DUPLICATE KEY UPDATE
    name         = VALUES(name),
    age          = VALUES(age),
    last_height  = VALUES(last_height),
    last_updated = VALUES(last_updated)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range profiles {
		if _, err := tx.Exec(q, p.ChildID, p.Name, p.Age, p.Height); err != nil {
			return fmt.Errorf("insert profile %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profiles: %w", err)
	}
	return nil
}
