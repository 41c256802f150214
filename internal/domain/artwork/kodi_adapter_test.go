package artwork_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/domain/artwork"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/infra/kodi"
)

func TestKodiFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64          `json:"id"`
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		var result string
		switch req.Method {
		case "Files.PrepareDownload":
			result = `{"details":{"token":"tok-` + req.Params["path"].(string) + `"},"protocol":"http","mode":"redirect"}`
		case "Files.GetDirectory":
			result = `{"files":[{"file":"nfs://nas/M/extrafanart/","filetype":"directory"},{"file":"nfs://nas/M/fanart2.jpg","filetype":"file"}]}`
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
	defer server.Close()

	files := artwork.NewKodiFiles(kodi.NewClient(server.URL))

	details, err := files.PrepareDownload(context.Background(), "a.jpg")
	if err != nil {
		t.Fatalf("PrepareDownload failed: %v", err)
	}
	if details.Token != "tok-a.jpg" || details.Path != "" {
		t.Errorf("details = %+v", details)
	}

	entries, err := files.ListDirectory(context.Background(), "nfs://nas/M")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	want := []artwork.DirEntry{
		{File: "nfs://nas/M/extrafanart/", IsDir: true},
		{File: "nfs://nas/M/fanart2.jpg"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}
