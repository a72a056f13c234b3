package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Record is the cached form of an upstream response.
type Record struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// toRecord drains resp.Body into a Record and replaces the body, so the
// response can still be written to the client afterwards.
func toRecord(resp *http.Response) (*Record, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Record{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

// fromRecord rebuilds an http.Response a client can consume.
func fromRecord(requ *http.Request, rec *Record) *http.Response {
	header := rec.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	return &http.Response{
		StatusCode:    rec.Status,
		Status:        fmt.Sprintf("%d %s", rec.Status, http.StatusText(rec.Status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(rec.Body)),
		ContentLength: int64(len(rec.Body)),
		Request:       requ,
	}
}
