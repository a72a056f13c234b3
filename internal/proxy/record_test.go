package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func drainBody(t *testing.T, body io.ReadCloser) string {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func TestRecordRoundTrip(t *testing.T) {
	orig := &http.Response{
		StatusCode: 201,
		Header: http.Header{
			"Content-Type": {"application/json"},
			"X-Upstream":   {"a", "b"},
		},
		Body: io.NopCloser(strings.NewReader(`{"ok":true}`)),
	}

	rec, err := toRecord(orig)
	if err != nil {
		t.Fatalf("toRecord() error = %v", err)
	}

	// The original response must still be serveable.
	if got := drainBody(t, orig.Body); got != `{"ok":true}` {
		t.Errorf("original body after toRecord() = %q", got)
	}

	// Entries persist as JSON, binary bodies ride through base64.
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	var stored Record
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}

	requ, _ := http.NewRequest("GET", "http://example.com/thing", nil)
	resp := fromRecord(requ, &stored)

	if resp.StatusCode != 201 {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header["X-Upstream"]; len(got) != 2 {
		t.Errorf("X-Upstream = %v, want both values", got)
	}
	if got := drainBody(t, resp.Body); got != `{"ok":true}` {
		t.Errorf("rebuilt body = %q", got)
	}
	if resp.ContentLength != int64(len(`{"ok":true}`)) {
		t.Errorf("ContentLength = %d", resp.ContentLength)
	}
}

func TestFromRecordNilHeader(t *testing.T) {
	requ, _ := http.NewRequest("GET", "http://example.com/", nil)
	resp := fromRecord(requ, &Record{Status: 204})

	if resp.Header == nil {
		t.Fatal("Header = nil, want an empty header map")
	}
	if got := drainBody(t, resp.Body); got != "" {
		t.Errorf("body = %q, want empty", got)
	}
}
