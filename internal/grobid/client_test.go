// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grobid

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meshintel/paperjson/pkg/types"
)

// testClient points a client at an httptest server.
func testClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parsing test server url: %v", err)
	}
	cfg := types.DefaultGrobidConfig()
	cfg.Server = u.Hostname()
	cfg.Port = u.Port()
	cfg.SleepTime = time.Millisecond
	cfg.MaxBusyRetries = 3
	return New(cfg)
}

func TestProcessFulltext(t *testing.T) {
	const teiDoc = `<TEI xmlns="http://www.tei-c.org/ns/1.0"></TEI>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/processFulltextDocument" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("input")
		if err != nil {
			t.Errorf("missing input file: %v", err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "paper.pdf" {
			t.Errorf("filename = %q, want paper.pdf", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.4 fake" {
			t.Errorf("file content = %q", data)
		}
		if got := r.FormValue("includeRawCitations"); got != "1" {
			t.Errorf("includeRawCitations = %q, want 1", got)
		}
		if got := r.FormValue("consolidateHeader"); got != "0" {
			t.Errorf("consolidateHeader = %q, want 0", got)
		}
		io.WriteString(w, teiDoc)
	}))
	defer ts.Close()

	c := testClient(t, ts)
	out, err := c.ProcessFulltext(context.Background(), "paper.pdf", []byte("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("ProcessFulltext: %v", err)
	}
	if out != teiDoc {
		t.Errorf("got %q, want %q", out, teiDoc)
	}
}

func TestProcessFulltextRetriesBusy(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("retried request lost its body: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		io.WriteString(w, "<TEI/>")
	}))
	defer ts.Close()

	c := testClient(t, ts)
	out, err := c.ProcessFulltext(context.Background(), "paper.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("ProcessFulltext: %v", err)
	}
	if out != "<TEI/>" {
		t.Errorf("got %q", out)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestProcessFulltextErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := testClient(t, ts)
	_, err := c.ProcessFulltext(context.Background(), "paper.pdf", []byte("%PDF"))
	if err == nil {
		t.Fatal("want error on status 500")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error does not carry status: %v", err)
	}
}

func TestProcessCitation(t *testing.T) {
	const fragment = `<biblStruct><analytic><title>On Testing</title></analytic></biblStruct>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/processCitation" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.FormValue("citations"); got != "Doe, J. On Testing. 2020." {
			t.Errorf("citations = %q", got)
		}
		if got := r.FormValue("consolidateCitations"); got != "0" {
			t.Errorf("consolidateCitations = %q, want 0", got)
		}
		io.WriteString(w, fragment)
	}))
	defer ts.Close()

	c := testClient(t, ts)
	out, err := c.ProcessCitation(context.Background(), "Doe, J. On Testing. 2020.")
	if err != nil {
		t.Fatalf("ProcessCitation: %v", err)
	}
	if out != fragment {
		t.Errorf("got %q", out)
	}
}

func TestProcessHeaderNames(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/processHeaderNames" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.FormValue("names"); got != "Jane Doe, John Roe" {
			t.Errorf("names = %q", got)
		}
		io.WriteString(w, `<persName><forename>Jane</forename><surname>Doe</surname></persName>`)
	}))
	defer ts.Close()

	c := testClient(t, ts)
	out, err := c.ProcessHeaderNames(context.Background(), "Jane Doe, John Roe")
	if err != nil {
		t.Fatalf("ProcessHeaderNames: %v", err)
	}
	if !strings.Contains(out, "<surname>Doe</surname>") {
		t.Errorf("got %q", out)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	c := New(types.GrobidConfig{})
	if c.baseURL != "http://localhost:8070" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.cfg.MaxBusyRetries != 8 {
		t.Errorf("MaxBusyRetries = %d, want 8", c.cfg.MaxBusyRetries)
	}
}
