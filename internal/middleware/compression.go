// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// MinCompressSize is the smallest body worth compressing.
const MinCompressSize = 1024

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// Compression gzips responses of at least MinCompressSize bytes for
// clients that accept it. Smaller bodies are written unchanged.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsGzip(r.Header.Get("Accept-Encoding")) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		gzw := &gzipResponseWriter{ResponseWriter: w, status: http.StatusOK}
		defer gzw.finish()
		next.ServeHTTP(gzw, r)
	})
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.TrimSpace(coding)
		if coding != "gzip" && coding != "*" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		return q > 0
	}
	return false
}

// gzipResponseWriter buffers the first MinCompressSize bytes to decide
// whether compression pays off, then either streams through gzip or
// flushes the buffer as is.
type gzipResponseWriter struct {
	http.ResponseWriter
	buf         bytes.Buffer
	gz          *gzip.Writer
	status      int
	wroteHeader bool
	decided     bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	if w.decided {
		if w.gz != nil {
			return w.gz.Write(b)
		}
		return w.ResponseWriter.Write(b)
	}

	w.buf.Write(b)
	if w.buf.Len() < MinCompressSize {
		return len(b), nil
	}
	if err := w.startGzip(); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w *gzipResponseWriter) startGzip() error {
	w.decided = true
	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		w.ResponseWriter.WriteHeader(w.status)
		_, err := w.ResponseWriter.Write(w.buf.Bytes())
		return err
	}

	h.Set("Content-Encoding", "gzip")
	h.Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.status)

	gz := gzipWriterPool.Get().(*gzip.Writer)
	gz.Reset(w.ResponseWriter)
	w.gz = gz
	_, err := gz.Write(w.buf.Bytes())
	return err
}

func (w *gzipResponseWriter) finish() {
	if !w.decided {
		w.decided = true
		if w.wroteHeader {
			w.ResponseWriter.WriteHeader(w.status)
		}
		if w.buf.Len() > 0 {
			_, _ = w.ResponseWriter.Write(w.buf.Bytes()) //nolint:errcheck // response already committed
		}
		return
	}
	if w.gz != nil {
		_ = w.gz.Close() //nolint:errcheck // best-effort, response already sent
		gzipWriterPool.Put(w.gz)
		w.gz = nil
	}
}
