package uploader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPutHostUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/baby.jpg" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "img-bytes" {
			t.Fatalf("unexpected body %q", body)
		}
		io.WriteString(w, "https://files.example.com/abc/baby.jpg\n")
	}))
	defer srv.Close()

	host := PutHost{Label: "test", BaseURL: srv.URL}
	url, err := host.Upload(context.Background(), "baby.jpg", []byte("img-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://files.example.com/abc/baby.jpg" {
		t.Fatalf("unexpected URL: %s", url)
	}
}

func TestMultipartHostPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "baby.jpg" {
			t.Fatalf("unexpected filename %s", header.Filename)
		}
		io.WriteString(w, "https://paste.example.com/xyz.jpg")
	}))
	defer srv.Close()

	host := MultipartHost{Label: "test", URL: srv.URL}
	url, err := host.Upload(context.Background(), "baby.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://paste.example.com/xyz.jpg" {
		t.Fatalf("unexpected URL: %s", url)
	}
}

func TestMultipartHostJSONLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"link":"https://drop.example.com/k9"}`)
	}))
	defer srv.Close()

	host := MultipartHost{Label: "test", URL: srv.URL, JSONLinkFields: []string{"link", "url"}}
	url, err := host.Upload(context.Background(), "baby.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://drop.example.com/k9" {
		t.Fatalf("unexpected URL: %s", url)
	}
}

func TestMultipartHostJSONWithoutLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false}`)
	}))
	defer srv.Close()

	host := MultipartHost{Label: "test", URL: srv.URL, JSONLinkFields: []string{"link"}}
	if _, err := host.Upload(context.Background(), "baby.jpg", []byte("img"), "image/jpeg"); err == nil {
		t.Fatal("expected error for link-less response")
	}
}

func TestPutHostRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	host := PutHost{Label: "test", BaseURL: srv.URL}
	if _, err := host.Upload(context.Background(), "baby.jpg", []byte("img"), "image/jpeg"); err == nil {
		t.Fatal("expected error for HTTP 503")
	}
}
