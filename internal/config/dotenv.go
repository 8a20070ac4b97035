package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv seeds the process environment from the env file at path so Load
// and the migrate command see DATABASE_URL, ADMIN_PASSWORD and the broadcast
// credentials during local development. Values already exported by the shell
// or container take precedence over the file. An empty path or a missing file
// leaves the environment untouched.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s from %s: %w", key, path, err)
		}
	}
	return nil
}
