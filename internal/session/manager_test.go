package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"depls/internal/config"
	"depls/internal/ecosystem"
	"depls/internal/manifest"
	"depls/internal/session"
)

// lineAdapter parses "name requirement" lines, one dependency each,
// and serves versions from a fixed map.
type lineAdapter struct {
	versions map[string][]manifest.Version
}

func (a *lineAdapter) ID() string                  { return "line" }
func (a *lineAdapter) DisplayName() string         { return "line" }
func (a *lineAdapter) ManifestFilenames() []string { return []string{"deps.txt"} }
func (a *lineAdapter) LockfileFilenames() []string { return nil }

func (a *lineAdapter) Parse(text string, uri string) (*manifest.ParseResult, error) {
	result := &manifest.ParseResult{URI: uri}
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			nameStart := offset + strings.Index(line, fields[0])
			reqStart := offset + strings.LastIndex(line, fields[1])
			span := manifest.Span{Start: reqStart, End: reqStart + len(fields[1])}
			result.Dependencies = append(result.Dependencies, manifest.Dependency{
				Name:            fields[0],
				NameSpan:        manifest.Span{Start: nameStart, End: nameStart + len(fields[0])},
				Requirement:     fields[1],
				RequirementSpan: &span,
				Section:         manifest.SectionRuntime,
			})
		}
		offset += len(line) + 1
	}
	return result, nil
}

func (a *lineAdapter) Versions(ctx context.Context, name string) ([]manifest.Version, error) {
	if v, ok := a.versions[name]; ok {
		return v, nil
	}
	return nil, ecosystem.ErrNotFound
}

func (a *lineAdapter) Matches(requirement, version string) bool { return requirement == version }
func (a *lineAdapter) FormatVersion(raw string) string          { return raw }
func (a *lineAdapter) PackageURL(name string) string            { return "https://example.com/" + name }

// slowAdapter delays parses of text containing the marker and signals
// when such a parse has started.
type slowAdapter struct {
	lineAdapter
	marker  string
	delay   time.Duration
	started chan struct{}
}

func (a *slowAdapter) Parse(text string, uri string) (*manifest.ParseResult, error) {
	if strings.Contains(text, a.marker) {
		select {
		case a.started <- struct{}{}:
		default:
		}
		time.Sleep(a.delay)
	}
	return a.lineAdapter.Parse(text, uri)
}

func newTestManager(t *testing.T, adapter ecosystem.Adapter, publish session.PublishFunc) *session.Manager {
	cfg := config.Default()
	return newTestManagerCfg(t, adapter, cfg, publish)
}

func newTestManagerCfg(t *testing.T, adapter ecosystem.Adapter, cfg config.Config, publish session.PublishFunc) *session.Manager {
	t.Helper()
	table := ecosystem.NewTable()
	if err := table.Register(adapter); err != nil {
		t.Fatalf("register: %v", err)
	}
	m := session.NewManager(table, &cfg, publish)
	t.Cleanup(m.Shutdown)
	return m
}

func waitForVersions(t *testing.T, ch <-chan *session.Snapshot, name string) *session.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if _, ok := snap.Versions[name]; ok {
				return snap
			}
		case <-deadline:
			t.Fatalf("no snapshot with versions for %q arrived", name)
		}
	}
}

func TestOpenPublishesThenFetches(t *testing.T) {
	published := make(chan *session.Snapshot, 16)
	adapter := &lineAdapter{versions: map[string][]manifest.Version{
		"foo": {{Value: "2.0"}, {Value: "1.0"}},
	}}
	m := newTestManager(t, adapter, func(snap *session.Snapshot) { published <- snap })

	m.Open("file:///work/deps.txt", "foo 1.0\n")

	first := <-published
	if first.Versions["foo"] != nil {
		// The synchronous publish may race the fetch, but a parse-only
		// snapshot never carries versions it was not given.
		t.Fatalf("first snapshot unexpectedly has versions: %v", first.Versions)
	}

	snap := waitForVersions(t, published, "foo")
	if len(snap.Versions["foo"]) != 2 {
		t.Fatalf("expected 2 versions, got %v", snap.Versions["foo"])
	}
	if snap.Latest["foo"] != "2.0" {
		t.Fatalf("expected latest 2.0, got %q", snap.Latest["foo"])
	}
}

func TestChangeKeepsCachedVersions(t *testing.T) {
	published := make(chan *session.Snapshot, 16)
	adapter := &lineAdapter{versions: map[string][]manifest.Version{
		"foo": {{Value: "2.0"}, {Value: "1.0"}},
	}}
	m := newTestManager(t, adapter, func(snap *session.Snapshot) { published <- snap })

	uri := "file:///work/deps.txt"
	m.Open(uri, "foo 1.0\n")
	waitForVersions(t, published, "foo")

	m.Change(uri, "foo 2.0\n")

	snap := m.Snapshot(uri)
	if snap.Content != "foo 2.0\n" {
		t.Fatalf("expected newest content, got %q", snap.Content)
	}
	if _, ok := snap.Versions["foo"]; !ok {
		t.Fatal("cached versions must survive an edit")
	}
}

// An edit that lands while an older refresh is still parsing must win;
// the slow refresh's snapshot is discarded, not published.
func TestSlowRefreshCannotOvertakeEdit(t *testing.T) {
	adapter := &slowAdapter{
		lineAdapter: lineAdapter{versions: map[string][]manifest.Version{
			"foo": {{Value: "2.0"}},
		}},
		marker:  "stale",
		delay:   200 * time.Millisecond,
		started: make(chan struct{}, 1),
	}
	m := newTestManager(t, adapter, nil)

	uri := "file:///work/deps.txt"
	m.Open(uri, "foo 1.0\n")

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Change(uri, "foo stale\n")
	}()

	select {
	case <-adapter.started:
	case <-time.After(2 * time.Second):
		t.Fatal("slow refresh never started")
	}
	m.Change(uri, "foo 2.0\n")
	<-done

	time.Sleep(50 * time.Millisecond)
	if got := m.Snapshot(uri).Content; got != "foo 2.0\n" {
		t.Fatalf("stale refresh overwrote the newer edit, content %q", got)
	}
}

// The periodic refresh reads the document only after claiming its
// revision, so an edit during a slow tick parse is never reverted, on
// that tick or any later one.
func TestPeriodicRefreshKeepsNewestText(t *testing.T) {
	adapter := &slowAdapter{
		lineAdapter: lineAdapter{},
		marker:      "stale",
		delay:       300 * time.Millisecond,
		started:     make(chan struct{}, 1),
	}
	cfg := config.Default()
	cfg.Fetch.RefreshIntervalSeconds = 1
	m := newTestManagerCfg(t, adapter, cfg, nil)

	uri := "file:///work/deps.txt"
	m.Open(uri, "foo stale\n")
	select {
	case <-adapter.started: // the open's own parse
	case <-time.After(2 * time.Second):
		t.Fatal("open never parsed")
	}

	// Wait for a tick to start parsing the stale text, then edit.
	select {
	case <-adapter.started:
	case <-time.After(3 * time.Second):
		t.Fatal("periodic refresh never started")
	}
	m.Change(uri, "foo 1.0\n")

	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if got := m.Snapshot(uri).Content; got != "foo 1.0\n" {
			t.Fatalf("published snapshot reverted to %q after the edit", got)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestCloseDropsSession(t *testing.T) {
	adapter := &lineAdapter{}
	m := newTestManager(t, adapter, nil)

	uri := "file:///work/deps.txt"
	m.Open(uri, "")
	if m.Snapshot(uri) == nil {
		t.Fatal("expected session after open")
	}
	m.Close(uri)
	if m.Snapshot(uri) != nil {
		t.Fatal("expected no session after close")
	}
}

func TestInertDocumentsAreIgnored(t *testing.T) {
	adapter := &lineAdapter{}
	m := newTestManager(t, adapter, nil)

	m.Open("file:///work/README.md", "hello")
	if m.Snapshot("file:///work/README.md") != nil {
		t.Fatal("unclaimed filename must not start a session")
	}
	if m.Ensure("file:///work/README.md") != nil {
		t.Fatal("cold start must not synthesize inert documents")
	}
}
