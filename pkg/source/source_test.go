package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rubiojr/rentgeo/internal/geotest"
	"github.com/rubiojr/rentgeo/pkg/spatial"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	sources := geotest.Sources()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := spatial.ParseKind(strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write(sources[kind])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	srv := newServer(t)
	client := NewClient()

	data, err := client.Fetch(context.Background(), srv.URL+"/boroughs")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if string(data) != geotest.Boroughs() {
		t.Errorf("Fetch() returned %d unexpected bytes", len(data))
	}

	if _, err := client.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Fetch() of a missing file should fail")
	}
}

func TestClient_FetchAll(t *testing.T) {
	srv := newServer(t)
	client := NewClientWithHTTP(srv.Client())

	urls := make(map[spatial.Kind]string)
	for _, kind := range spatial.Kinds {
		urls[kind] = srv.URL + "/" + string(kind)
	}

	sources, err := client.FetchAll(context.Background(), urls)
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(sources) != len(spatial.Kinds) {
		t.Fatalf("FetchAll() returned %d datasets, expected %d", len(sources), len(spatial.Kinds))
	}
	if _, err := spatial.Build(sources, spatial.LoadOptions{}); err != nil {
		t.Errorf("downloaded datasets do not build: %v", err)
	}

	urls[spatial.KindNoise] = srv.URL + "/nope"
	if _, err := client.FetchAll(context.Background(), urls); err == nil {
		t.Error("FetchAll() with a failing download should fail")
	}
}

func TestClient_FetchCanceled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewClient().Fetch(ctx, srv.URL+"/stations"); err == nil {
		t.Error("Fetch() with a canceled context should fail")
	}
}
