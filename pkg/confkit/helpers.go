package confkit

import "os"

// exists reports whether path names a file or directory that can be
// stat'd. A permission error or any other Stat failure counts as "does not
// exist" for the path-search helpers in this package — they only care
// about presence, not why a lookup might fail.
func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
