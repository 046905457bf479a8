package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// maxClimb bounds how many parent directories climbToMarker will visit
// before giving up, so a misconfigured or oddly mounted filesystem can't
// turn a root lookup into an unbounded walk.
const maxClimb = 8

// repoMarkers names the files whose presence in a directory means "this is
// the repository root", for both ProjectRoot and the .env search in
// dotenv.go.
var repoMarkers = []string{"go.mod", ".git"}

// isRepoRoot reports whether dir itself contains one of repoMarkers.
func isRepoRoot(dir string) bool {
	for _, marker := range repoMarkers {
		if exists(filepath.Join(dir, marker)) {
			return true
		}
	}
	return false
}

// climbToMarker walks upward from start, at most maxClimb levels, and
// returns the first directory containing any of markers.
func climbToMarker(start string, markers ...string) (string, bool) {
	dir := filepath.Clean(start)
	for i := 0; i < maxClimb; i++ {
		for _, marker := range markers {
			if exists(filepath.Join(dir, marker)) {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
	return "", false
}

// thisFileDir returns the directory confkit's own source was compiled
// from — the anchor ProjectRoot climbs from, independent of whatever
// directory the calling process happens to be running in.
func thisFileDir() (string, bool) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", false
	}
	return filepath.Dir(file), true
}

// ProjectRoot locates the repository root by climbing from confkit's own
// source location until it finds a go.mod or .git directory. Falls back to
// the process's working directory if that search fails, e.g. a stripped
// binary with no embedded source path.
func ProjectRoot() (string, error) {
	if dir, ok := thisFileDir(); ok {
		if root, found := climbToMarker(dir, repoMarkers...); found {
			return root, nil
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("confkit: getwd: %w", err)
	}
	return wd, nil
}

// MustProjectRoot is ProjectRoot, panicking on failure instead of
// returning an error.
func MustProjectRoot() string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return root
}

// ProjectPath joins the repository root with rel.
func ProjectPath(rel string) (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}

// MustProjectPath is ProjectPath, panicking on failure instead of
// returning an error.
func MustProjectPath(rel string) string {
	p, err := ProjectPath(rel)
	if err != nil {
		panic(err)
	}
	return p
}
