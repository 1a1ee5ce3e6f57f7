package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// DumpFileName is the name of every dump inside the cache.
const DumpFileName = "ABI.dump"

const stagingDirName = ".partial"

// SupportedLanguages are the dump languages abi-compliance-checker can compare.
var SupportedLanguages = []string{"C", "C++"}

// DumpCache builds ABI dumps into <root>/<arch>/<name>/<version>/<object>/ABI.dump
// and reuses existing ones.
type DumpCache struct {
	root      m.Path
	fs        adapter.FSAdapter
	generator adapter.DumpGenerator
	inspector adapter.DumpInspector
	rebuild   bool

	group  singleflight.Group
	mu     sync.Mutex
	purged map[m.Path]bool
}

// NewDumpCache constructs a DumpCache. When rebuild is set every cached dump
// is removed the first time it is requested in this run.
func NewDumpCache(
	root m.Path,
	fs adapter.FSAdapter,
	generator adapter.DumpGenerator,
	inspector adapter.DumpInspector,
	rebuild bool,
) *DumpCache {
	return &DumpCache{
		root:      root,
		fs:        fs,
		generator: generator,
		inspector: inspector,
		rebuild:   rebuild,
		purged:    map[m.Path]bool{},
	}
}

// Path returns the cache location for key.
func (c *DumpCache) Path(key m.DumpKey) m.Path {
	return c.fs.JoinPath(string(c.root), key.Arch, key.Package, key.Version, key.Object, DumpFileName)
}

// Get returns a valid dump for key, building it with req when needed.
// Concurrent calls for the same key share one build. Cached dumps are
// trusted as they are. Freshly built dumps that are empty or not C/C++ are
// discarded and reported with ErrEmptyDump or ErrUnsupportedLanguage; a
// failed or cancelled build leaves nothing in the cache.
func (c *DumpCache) Get(ctx context.Context, key m.DumpKey, req adapter.DumpRequest) (m.ABIDump, error) {
	path := c.Path(key)

	v, err, _ := c.group.Do(string(path), func() (interface{}, error) {
		return c.load(ctx, key, path, req)
	})
	if err != nil {
		return m.ABIDump{}, err
	}

	dump, ok := v.(m.ABIDump)
	if !ok {
		return m.ABIDump{}, fmt.Errorf("unexpected dump cache value %T", v)
	}

	return dump, nil
}

func (c *DumpCache) load(ctx context.Context, key m.DumpKey, path m.Path, req adapter.DumpRequest) (m.ABIDump, error) {
	exists, err := c.fs.Exists(path)
	if err != nil {
		return m.ABIDump{}, err
	}

	if exists {
		if !c.claimPurge(path) {
			slog.Debug("Using existing ABI dump", "object", key.Object, "path", path)
			return m.ABIDump{Object: key.Object, Path: path, Cached: true}, nil
		}

		slog.Debug("Removing cached ABI dump", "object", key.Object, "path", path)

		if err := c.fs.RemoveAll(path); err != nil {
			return m.ABIDump{}, fmt.Errorf("failed to remove ABI dump %s: %w", path, err)
		}
	}

	staging := c.stagingPath(key)

	// A killed run can leave a partial dump behind.
	if err := c.fs.RemoveAll(staging); err != nil {
		return m.ABIDump{}, fmt.Errorf("failed to clean dump staging directory: %w", err)
	}

	if err := c.fs.MkdirAll(staging); err != nil {
		return m.ABIDump{}, fmt.Errorf("failed to create dump directory: %w", err)
	}

	defer func() {
		if err := c.fs.RemoveAll(staging); err != nil {
			slog.Warn("Failed to remove dump staging directory", "path", staging, "error", err)
		}
	}()

	built := c.fs.JoinPath(string(staging), DumpFileName)

	req.Output = built
	if err := c.generator.GenerateDump(ctx, req); err != nil {
		return m.ABIDump{}, err
	}

	attrs, err := c.inspector.InspectDump(built)
	if err != nil {
		return m.ABIDump{}, fmt.Errorf("failed to read ABI dump %s: %w", built, err)
	}

	if invalid := validateDump(attrs); invalid != nil {
		return m.ABIDump{}, invalid
	}

	if err := c.fs.Rename(built, path); err != nil {
		return m.ABIDump{}, fmt.Errorf("failed to store ABI dump %s: %w", path, err)
	}

	return m.ABIDump{Object: key.Object, Path: path, Attributes: attrs}, nil
}

// stagingPath is the directory a dump is built in before it is moved into
// the cache. Only finished, valid dumps ever reach Path.
func (c *DumpCache) stagingPath(key m.DumpKey) m.Path {
	return c.fs.JoinPath(string(c.root), key.Arch, key.Package, key.Version, key.Object, stagingDirName)
}

// claimPurge reports whether the cached dump at path must be removed now.
// It returns true at most once per path.
func (c *DumpCache) claimPurge(path m.Path) bool {
	if !c.rebuild {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.purged[path] {
		return false
	}

	c.purged[path] = true

	return true
}

func validateDump(attrs m.DumpAttributes) error {
	if attrs.Empty {
		return ErrEmptyDump
	}

	for _, lang := range SupportedLanguages {
		if attrs.Language == lang {
			return nil
		}
	}

	return fmt.Errorf("%w %s", ErrUnsupportedLanguage, attrs.Language)
}

// IsSkippedDump reports whether err only means the object has nothing to compare.
func IsSkippedDump(err error) bool {
	return errors.Is(err, adapter.ErrNoABI)
}
