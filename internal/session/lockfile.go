package session

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"depls/internal/ecosystem"
)

const (
	maxLockfileBytes = 10 << 20
	maxParentWalk    = 5
)

// uriToPath converts a file:// URI to a filesystem path. Non-file URIs
// yield "".
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 2 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}

// resolveLocked reads the adapter's lock file near the manifest and
// maps each dependency name to its locked version. The manifest's own
// directory is checked first, then up to five parents, so workspace
// layouts with a root lock file still resolve. Purely local, no
// network.
func resolveLocked(adapter ecosystem.Adapter, manifestURI string, names []string) map[string]string {
	resolver, ok := adapter.(ecosystem.LockfileResolver)
	if !ok {
		return nil
	}
	lockNames := adapter.LockfileFilenames()
	if len(lockNames) == 0 {
		return nil
	}
	manifestPath := uriToPath(manifestURI)
	if manifestPath == "" {
		return nil
	}

	dir := filepath.Dir(manifestPath)
	for i := 0; i <= maxParentWalk; i++ {
		for _, lockName := range lockNames {
			text, ok := readCapped(filepath.Join(dir, lockName))
			if !ok {
				continue
			}
			resolved := make(map[string]string, len(names))
			for _, name := range names {
				if version, found := resolver.ResolveLocked(text, name); found {
					resolved[name] = version
				}
			}
			return resolved
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

// readCapped reads a file up to the lock file size cap. Oversized
// files are treated as absent rather than half-read.
func readCapped(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxLockfileBytes+1))
	if err != nil || len(data) > maxLockfileBytes {
		return "", false
	}
	return string(data), true
}
