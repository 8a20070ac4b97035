package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	name := pflag.String("name", "", "migration name (lowercase letters, digits, underscores)")
	dir := pflag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	pflag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if *name == "" {
		logger.Fatal("migration name is required")
	}
	if !migrationName.MatchString(*name) {
		logger.Fatal("migration name must be lowercase snake_case", zap.String("name", *name))
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, *name)
	upPath := filepath.Join(*dir, base+".up.sql")
	downPath := filepath.Join(*dir, base+".down.sql")

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logger.Fatal("create migrations dir", zap.Error(err))
	}
	if err := writeFile(upPath, "-- up migration\n"); err != nil {
		logger.Fatal("create up migration", zap.Error(err))
	}
	if err := writeFile(downPath, "-- down migration\n"); err != nil {
		logger.Fatal("create down migration", zap.Error(err))
	}

	logger.Info("created migration", zap.String("up", upPath), zap.String("down", downPath))
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
