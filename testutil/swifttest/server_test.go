package swifttest

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func do(t *testing.T, s *Server, method, url string, header http.Header, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("X-Auth-Token", s.Token())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestContainerLifecycle(t *testing.T) {
	s := New(t)
	base := s.StorageURL() + "/photos"

	if resp := do(t, s, http.MethodPut, base, nil, ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d", resp.StatusCode)
	}
	if resp := do(t, s, http.MethodPut, base, nil, ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("re-create: %d", resp.StatusCode)
	}
	s.PutObject("photos", "cat.jpg", []byte("meow"), "image/jpeg")

	resp := do(t, s, http.MethodHead, base, nil, "")
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("X-Container-Object-Count") != "1" {
		t.Fatalf("head: %d %v", resp.StatusCode, resp.Header)
	}
	if resp := do(t, s, http.MethodDelete, base, nil, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete non-empty: %d", resp.StatusCode)
	}

	resp = do(t, s, http.MethodGet, base, nil, "")
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "cat.jpg\n" {
		t.Errorf("listing = %q", body)
	}

	if resp := do(t, s, http.MethodDelete, base+"/cat.jpg", nil, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete object: %d", resp.StatusCode)
	}
	if resp := do(t, s, http.MethodDelete, base, nil, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete empty: %d", resp.StatusCode)
	}
	if s.HasContainer("photos") {
		t.Error("container should be gone")
	}
}

func TestObjects(t *testing.T) {
	s := New(t)
	s.CreateContainer("a")
	s.CreateContainer("b")

	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Set("X-Object-Meta-Color", "blue")
	if resp := do(t, s, http.MethodPut, s.StorageURL()+"/a/dir/my%20file.txt", h, "hello"); resp.StatusCode != http.StatusCreated {
		t.Fatalf("put: %d", resp.StatusCode)
	}
	data, ct, ok := s.Object("a", "dir/my file.txt")
	if !ok || string(data) != "hello" || ct != "text/plain" {
		t.Fatalf("stored object: %q %q %v", data, ct, ok)
	}

	resp := do(t, s, http.MethodHead, s.StorageURL()+"/a/dir/my%20file.txt", nil, "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Object-Meta-Color") != "blue" || resp.Header.Get("Etag") == "" {
		t.Fatalf("head: %d %v", resp.StatusCode, resp.Header)
	}

	dst := http.Header{}
	dst.Set("Destination", "/b/copy.txt")
	if resp := do(t, s, "COPY", s.StorageURL()+"/a/dir/my%20file.txt", dst, ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("copy: %d", resp.StatusCode)
	}
	if data, _, ok := s.Object("b", "copy.txt"); !ok || string(data) != "hello" {
		t.Error("copy not stored")
	}

	meta := http.Header{}
	meta.Set("X-Object-Meta-Size", "small")
	if resp := do(t, s, http.MethodPost, s.StorageURL()+"/b/copy.txt", meta, ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("post: %d", resp.StatusCode)
	}
	got := s.ObjectMeta("b", "copy.txt")
	if got.Get("X-Object-Meta-Size") != "small" || got.Get("X-Object-Meta-Color") != "" {
		t.Errorf("metadata should be replaced, got %v", got)
	}

	if resp := do(t, s, http.MethodGet, s.StorageURL()+"/a/missing", nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing object: %d", resp.StatusCode)
	}
	if resp := do(t, s, http.MethodPut, s.StorageURL()+"/nope/x", nil, "x"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("put into missing container: %d", resp.StatusCode)
	}
}

func TestCDN(t *testing.T) {
	s := New(t)
	s.CreateContainer("web")
	url := s.CDNURL() + "/web"

	if resp := do(t, s, http.MethodHead, url, nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("head before enable: %d", resp.StatusCode)
	}
	h := http.Header{}
	h.Set("X-TTL", "600")
	if resp := do(t, s, http.MethodPut, url, h, ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("enable: %d", resp.StatusCode)
	}
	resp := do(t, s, http.MethodHead, url, nil, "")
	if resp.Header.Get("X-CDN-Enabled") != "True" || resp.Header.Get("X-TTL") != "600" {
		t.Fatalf("cdn headers: %v", resp.Header)
	}

	off := http.Header{}
	off.Set("X-CDN-Enabled", "False")
	do(t, s, http.MethodPost, url, off, "")
	if resp := do(t, s, http.MethodHead, url, nil, ""); resp.Header.Get("X-CDN-Enabled") != "False" {
		t.Errorf("expected disabled, got %v", resp.Header)
	}
}

func TestAuthAndFaults(t *testing.T) {
	s := New(t)
	s.CreateContainer("c")

	req, _ := http.NewRequest(http.MethodHead, s.StorageURL()+"/c", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	s.InjectFault(func(r *http.Request) *Fault {
		if r.Method == http.MethodHead {
			return &Fault{Status: http.StatusServiceUnavailable}
		}
		return nil
	})
	if resp := do(t, s, http.MethodHead, s.StorageURL()+"/c", nil, ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected injected 503, got %d", resp.StatusCode)
	}

	s.InjectFault(func(*http.Request) *Fault { return &Fault{Drop: true} })
	req, _ = http.NewRequest(http.MethodGet, s.StorageURL()+"/c", nil)
	if resp, err := http.DefaultClient.Do(req); err == nil {
		_ = resp.Body.Close()
		t.Error("expected a dropped connection")
	}

	s.InjectFault(nil)
	if n := s.CountRequests(http.MethodHead); n != 2 {
		t.Errorf("expected 2 HEAD requests recorded, got %d", n)
	}
}
