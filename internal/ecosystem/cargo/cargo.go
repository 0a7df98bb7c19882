// Package cargo implements the Cargo.toml ecosystem adapter backed by
// the crates.io sparse index.
package cargo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"depls/internal/manifest"
	"depls/internal/registry"
)

const sparseIndexBase = "https://index.crates.io"

// Adapter is the Cargo ecosystem implementation.
type Adapter struct {
	cache *registry.Cache
}

// New returns a Cargo adapter fetching through the shared cache.
func New(cache *registry.Cache) *Adapter {
	return &Adapter{cache: cache}
}

func (a *Adapter) ID() string          { return "cargo" }
func (a *Adapter) DisplayName() string { return "Cargo (Rust)" }

func (a *Adapter) ManifestFilenames() []string { return []string{"Cargo.toml"} }
func (a *Adapter) LockfileFilenames() []string { return []string{"Cargo.lock"} }

// Versions fetches the crate's sparse index file. Index lines are
// ordered oldest-first; the result is reversed to newest-first.
func (a *Adapter) Versions(ctx context.Context, name string) ([]manifest.Version, error) {
	url := fmt.Sprintf("%s/%s", sparseIndexBase, sparseIndexPath(name))
	body, err := a.cache.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseIndex(body)
}

// Matches interprets the requirement with Cargo semantics: a bare
// version means caret.
func (a *Adapter) Matches(requirement, version string) bool {
	req := strings.TrimSpace(requirement)
	if req == "" {
		return true
	}
	if req[0] >= '0' && req[0] <= '9' {
		req = "^" + req
	}
	constraint, err := semver.NewConstraint(req)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// FormatVersion quotes the version the way Cargo.toml writes it.
func (a *Adapter) FormatVersion(raw string) string {
	return `"` + raw + `"`
}

func (a *Adapter) PackageURL(name string) string {
	return "https://crates.io/crates/" + name
}

// sparseIndexPath spreads crate files over the index directory layout:
// 1-char names under 1/, 2-char under 2/, 3-char under 3/<first>/, and
// everything else under <first two>/<next two>/.
func sparseIndexPath(name string) string {
	lower := strings.ToLower(name)
	switch len(lower) {
	case 0:
		return lower
	case 1:
		return "1/" + lower
	case 2:
		return "2/" + lower
	case 3:
		return "3/" + lower[:1] + "/" + lower
	default:
		return lower[:2] + "/" + lower[2:4] + "/" + lower
	}
}
