package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables in file and, if the result
// isn't already absolute, joins it onto base. Every *config.go in this
// tree that reads a relative sub-config path (exchange.yaml alongside the
// main candlereactor.yaml, say) goes through this one function so "where
// is this file, relative to what" is answered the same way everywhere.
func ResolvePath(base, file string) string {
	expanded := os.ExpandEnv(file)
	if filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(base, expanded)
}

// BaseDir returns the directory component of a loaded config file's path,
// the base every one of its Section fields resolves relative paths
// against.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// LoadFile reads path into a fresh T via go-zero's conf.Load, optionally
// expanding ${VAR}-style environment references first.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	var opts []conf.Option
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("confkit: load %s: %w", path, err)
	}
	return &cfg, nil
}

// Section is an optional config sub-document: a relative path to a second
// YAML file, loaded and decoded into Value on demand by Hydrate. Embedding
// Section[T] rather than T directly lets a top-level Config stay silent
// about a sub-component (no File set) instead of requiring every section
// inline in one file.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate resolves File against base and runs it through loader, storing
// both the resolved absolute path and the decoded value back onto the
// section. A blank File is left untouched — the section simply stays
// unhydrated, Value nil — rather than treated as an error, since most
// sections are optional.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	resolved := ResolvePath(base, s.File)
	value, err := loader(resolved)
	if err != nil {
		return err
	}
	s.File = resolved
	s.Value = value
	return nil
}
