package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=value settings from path into the process
// environment. Variables already set win. A missing file is not an error
// unless required is set.
func LoadEnvFile(path string, required bool) error {
	err := godotenv.Load(path)
	if err != nil && !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
