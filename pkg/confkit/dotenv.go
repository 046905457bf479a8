package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

// LoadDotenvOnce loads environment variables for the process from a .env
// file, the same bootstrap every cmd/ entry point needs before reading its
// own config. The first call wins; later calls are no-ops, so it is safe
// to call from more than one package's init path (config loading, test
// setup) without double-loading. Existing environment variables are left
// alone unless DOTENV_OVERLOAD=1 is set.
func LoadDotenvOnce() {
	loadEnvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}

	apply := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		apply = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = apply(envFile)
		return
	}

	dir, ok := thisFileDir()
	if !ok {
		_ = apply(".env")
		return
	}

	// Walk from confkit's own source directory up to the repo root,
	// loading a .env at every level along the way — a .env closer to the
	// repo root (or a package-local override) both get a chance to apply,
	// godotenv.Load's own "don't clobber what's already set" rule decides
	// which value sticks when more than one defines the same key.
	dir = filepath.Clean(dir)
	for i := 0; i < maxClimb; i++ {
		_ = apply(filepath.Join(dir, ".env"))
		if isRepoRoot(dir) {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
