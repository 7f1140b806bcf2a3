// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/paperbot/pkg/types"
)

func TestUpload(t *testing.T) {
	var uploadBody string
	var permissionPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("uploadType") == "multipart":
			if got := r.Header.Get("Authorization"); got != "Bearer ya29.test" {
				t.Errorf("Authorization = %q", got)
			}
			data, _ := io.ReadAll(r.Body)
			uploadBody = string(data)
			fmt.Fprint(w, `{"id":"file123","webViewLink":"https://drive.google.com/file/d/file123/view"}`)
		case strings.HasSuffix(r.URL.Path, "/permissions"):
			permissionPath = r.URL.Path
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
	}))
	defer ts.Close()

	oldUpload, oldFiles := driveUploadBase, driveFilesBase
	driveUploadBase, driveFilesBase = ts.URL+"/upload", ts.URL+"/files"
	defer func() { driveUploadBase, driveFilesBase = oldUpload, oldFiles }()

	c := NewClient(types.StorageConfig{AccessToken: "ya29.test", FolderID: "folder9"})
	c.http = ts.Client()

	link, err := c.Upload(context.Background(), "draft.md", strings.NewReader("# Draft body"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if link != "https://drive.google.com/file/d/file123/view" {
		t.Errorf("link = %q", link)
	}

	for _, part := range []string{`"name":"draft.md"`, `"parents":["folder9"]`, "# Draft body"} {
		if !strings.Contains(uploadBody, part) {
			t.Errorf("upload body missing %q", part)
		}
	}
	if permissionPath != "/files/file123/permissions" {
		t.Errorf("permission path = %q", permissionPath)
	}
}

func TestUploadUnconfigured(t *testing.T) {
	c := NewClient(types.StorageConfig{})
	link, err := c.Upload(context.Background(), "draft.md", strings.NewReader("x"))
	if err != nil || link != "" {
		t.Errorf("got %q, %v; want empty, nil", link, err)
	}
}

func TestUploadHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := driveUploadBase
	driveUploadBase = ts.URL
	defer func() { driveUploadBase = old }()

	c := NewClient(types.StorageConfig{AccessToken: "expired"})
	c.http = ts.Client()

	if _, err := c.Upload(context.Background(), "draft.md", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for HTTP 401")
	}
}
