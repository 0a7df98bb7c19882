package fetcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depls/internal/ecosystem"
	"depls/internal/fetcher"
	"depls/internal/manifest"
)

// adapterFunc routes Versions calls per package name.
type adapterFunc struct {
	versions func(ctx context.Context, name string) ([]manifest.Version, error)
}

func (a *adapterFunc) ID() string                  { return "stub" }
func (a *adapterFunc) DisplayName() string         { return "stub" }
func (a *adapterFunc) ManifestFilenames() []string { return []string{"stub.toml"} }
func (a *adapterFunc) LockfileFilenames() []string { return nil }

func (a *adapterFunc) Parse(text string, uri string) (*manifest.ParseResult, error) {
	return &manifest.ParseResult{URI: uri}, nil
}

func (a *adapterFunc) Versions(ctx context.Context, name string) ([]manifest.Version, error) {
	return a.versions(ctx, name)
}

func (a *adapterFunc) Matches(requirement, version string) bool { return true }
func (a *adapterFunc) FormatVersion(raw string) string          { return raw }
func (a *adapterFunc) PackageURL(name string) string            { return "https://example.com/" + name }

func TestHangingFetchDoesNotBlockOthers(t *testing.T) {
	adapter := &adapterFunc{versions: func(ctx context.Context, name string) ([]manifest.Version, error) {
		if name == "stuck" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []manifest.Version{{Value: "1.0.0"}}, nil
	}}

	start := time.Now()
	res := fetcher.Fetch(context.Background(), adapter, []fetcher.Request{
		{Name: "stuck"},
		{Name: "fine"},
	}, fetcher.Options{PerFetchTimeout: 50 * time.Millisecond})

	require.Less(t, time.Since(start), 5*time.Second)
	assert.NotContains(t, res.Versions, "stuck", "timed-out fetch must contribute nothing")
	assert.Contains(t, res.Versions, "fine")
	assert.Equal(t, "1.0.0", res.Latest["fine"])
}

func TestEmptyVersionListIsRecorded(t *testing.T) {
	adapter := &adapterFunc{versions: func(ctx context.Context, name string) ([]manifest.Version, error) {
		return []manifest.Version{}, nil
	}}

	res := fetcher.Fetch(context.Background(), adapter, []fetcher.Request{{Name: "ghost"}}, fetcher.Options{})

	versions, ok := res.Versions["ghost"]
	require.True(t, ok, "a successful fetch with no versions must still be recorded")
	assert.Empty(t, versions)
	assert.NotContains(t, res.Latest, "ghost")
}

func TestNotFoundRecordsEmptyList(t *testing.T) {
	adapter := &adapterFunc{versions: func(ctx context.Context, name string) ([]manifest.Version, error) {
		return nil, ecosystem.ErrNotFound
	}}

	res := fetcher.Fetch(context.Background(), adapter, []fetcher.Request{{Name: "nope"}}, fetcher.Options{})

	versions, ok := res.Versions["nope"]
	require.True(t, ok, "a 404 is an answer, not a failure")
	assert.Empty(t, versions)
}

func TestFailedFetchIsIsolated(t *testing.T) {
	adapter := &adapterFunc{versions: func(ctx context.Context, name string) ([]manifest.Version, error) {
		if name == "broken" {
			return nil, ecosystem.ErrFetch
		}
		return []manifest.Version{{Value: "2.0.0"}, {Value: "1.0.0"}}, nil
	}}

	res := fetcher.Fetch(context.Background(), adapter, []fetcher.Request{
		{Name: "broken"},
		{Name: "fine"},
	}, fetcher.Options{})

	assert.NotContains(t, res.Versions, "broken")
	assert.Len(t, res.Versions["fine"], 2)
}

func TestCanceledContextStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := &adapterFunc{versions: func(ctx context.Context, name string) ([]manifest.Version, error) {
		return []manifest.Version{{Value: "1.0.0"}}, nil
	}}

	res := fetcher.Fetch(ctx, adapter, []fetcher.Request{{Name: "a"}, {Name: "b"}}, fetcher.Options{})
	assert.Empty(t, res.Versions)
}
