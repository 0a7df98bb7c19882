package cargo_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"depls/internal/ecosystem/cargo"
	"depls/internal/registry"
)

type indexDoer struct {
	t    *testing.T
	path string
	body string
}

func (d *indexDoer) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Path != d.path {
		d.t.Errorf("expected sparse index path %s, got %s", d.path, req.URL.Path)
	}
	return &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

func TestVersionsFromSparseIndex(t *testing.T) {
	index := `{"name":"serde","vers":"1.0.0","yanked":false}
{"name":"serde","vers":"1.0.1","yanked":true}
{"name":"serde","vers":"1.0.2","yanked":false}
`
	doer := &indexDoer{t: t, path: "/se/rd/serde", body: index}
	adapter := cargo.New(registry.NewCache(registry.Options{Client: doer}))

	versions, err := adapter.Versions(context.Background(), "serde")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if versions[0].Value != "1.0.2" {
		t.Fatalf("expected newest first, got %q", versions[0].Value)
	}
	if !versions[1].Yanked {
		t.Fatalf("expected 1.0.1 yanked, got %+v", versions[1])
	}
}

func TestSparseIndexShortNames(t *testing.T) {
	cases := map[string]string{
		"a":     "/1/a",
		"ab":    "/2/ab",
		"abc":   "/3/a/abc",
		"serde": "/se/rd/serde",
	}
	for name, path := range cases {
		doer := &indexDoer{t: t, path: path, body: `{"name":"x","vers":"1.0.0","yanked":false}` + "\n"}
		adapter := cargo.New(registry.NewCache(registry.Options{Client: doer}))
		if _, err := adapter.Versions(context.Background(), name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}
