//go:build windows

package export

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// renameio has no Windows support; fall back to a plain write.
func writeFile(path string, data []byte, _ zerolog.Logger) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
