package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/regionmap/pkg/core"
)

// DefaultMaxFileSize is the per-file read limit (100 MiB).
const DefaultMaxFileSize int64 = 100 << 20

// Guard checks a path before any byte of it is read.
type Guard struct {
	// MaxFileSize is the largest file accepted, in bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64
	// BaseDir, when set, is the directory every path must resolve inside.
	BaseDir string
}

func (g Guard) limit() int64 {
	if g.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return g.MaxFileSize
}

// Within returns a copy of g confined to dir.
func (g Guard) Within(dir string) Guard {
	g.BaseDir = dir
	return g
}

// CheckPath rejects paths that resolve outside BaseDir.
func (g Guard) CheckPath(path string) error {
	if g.BaseDir == "" {
		return nil
	}
	base, err := resolve(g.BaseDir)
	if err != nil {
		return fmt.Errorf("resolve base dir %s: %w", g.BaseDir, err)
	}
	target, err := resolve(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return &ResourceLimitError{Path: path, Kind: LimitTraversal, Base: g.BaseDir}
	}
	return nil
}

// ReadFile applies the path and size guards, then reads the whole file.
func (g Guard) ReadFile(path string, kind core.SourceKind) ([]byte, core.SourceFile, error) {
	src := core.SourceFile{Path: path, Kind: kind}

	if err := g.CheckPath(path); err != nil {
		return nil, src, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, src, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, src, structural(path, "is a directory", nil)
	}
	limit := g.limit()
	if info.Size() > limit {
		return nil, src, &ResourceLimitError{Path: path, Kind: LimitSize, Limit: limit, Size: info.Size()}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, src, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// The file may grow between stat and read.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, src, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, src, &ResourceLimitError{Path: path, Kind: LimitSize, Limit: limit, Size: int64(len(data))}
	}

	sum := sha256.Sum256(data)
	src.Size = int64(len(data))
	src.SHA256 = hex.EncodeToString(sum[:])
	return data, src, nil
}

// resolve returns the absolute, cleaned path with symlinks evaluated as far
// as the path exists.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	rest := ""
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
