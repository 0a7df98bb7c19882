// Package ecosystem defines the capability interface every supported
// manifest format implements, and the dispatch table that routes a
// document to the right implementation.
package ecosystem

import (
	"context"
	"errors"

	"depls/internal/manifest"
)

// Sentinel errors shared by all adapters.
var (
	// ErrParse marks a malformed manifest. The document survives with
	// zero dependencies; the session never crashes on it.
	ErrParse = errors.New("manifest parse error")
	// ErrFetch marks a network or registry failure for one package.
	ErrFetch = errors.New("registry fetch error")
	// ErrNotFound marks a package the registry does not know.
	ErrNotFound = errors.New("package not found")
)

// Adapter bundles the parser, registry client and formatter for one
// ecosystem. Implementations live in the subpackages and are registered
// once at startup.
type Adapter interface {
	// ID is the stable identifier, e.g. "cargo".
	ID() string
	// DisplayName is shown in diagnostics and logs.
	DisplayName() string
	// ManifestFilenames lists the final path segments this adapter
	// claims, e.g. ["Cargo.toml"].
	ManifestFilenames() []string
	// LockfileFilenames lists lock files the ecosystem resolves
	// versions from. Empty when the ecosystem has none.
	LockfileFilenames() []string

	// Parse extracts the uniform dependency model from manifest text.
	Parse(text string, uri string) (*manifest.ParseResult, error)

	// Versions fetches all published versions, newest-first in the
	// ecosystem's own ordering.
	Versions(ctx context.Context, name string) ([]manifest.Version, error)

	// Matches reports whether a concrete version satisfies the declared
	// requirement, using the ecosystem's requirement syntax. It never
	// touches the network.
	Matches(requirement, version string) bool

	// FormatVersion renders a raw version the way the ecosystem writes
	// it into a manifest, e.g. adding quotes.
	FormatVersion(raw string) string

	// PackageURL links to the package page on the registry website.
	PackageURL(name string) string
}

// LockfileResolver is implemented by adapters whose ecosystem has a lock
// file carrying resolved versions.
type LockfileResolver interface {
	// ResolveLocked returns the resolved version of a dependency from
	// lock file text, if the lock file pins one.
	ResolveLocked(lockText, name string) (string, bool)
}

// LatestMatching applies the uniform selection policy on top of an
// adapter's version list: yanked versions are skipped first, then the
// first remaining version (newest-first) that satisfies the requirement
// wins. A yanked version is never recommended, even when only yanked
// versions would satisfy the requirement.
func LatestMatching(ctx context.Context, a Adapter, name, requirement string) (*manifest.Version, error) {
	versions, err := a.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	return SelectMatching(a, versions, requirement), nil
}

// SelectMatching is the pure half of LatestMatching, usable when the
// version list is already at hand.
func SelectMatching(a Adapter, versions []manifest.Version, requirement string) *manifest.Version {
	for _, v := range versions {
		if v.Yanked {
			continue
		}
		if requirement == "" || a.Matches(requirement, v.Value) {
			matched := v
			return &matched
		}
	}
	return nil
}
