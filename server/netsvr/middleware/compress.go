// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

func isNoBodyStatus(code int) bool {
	// 204 No Content, 304 Not Modified, 1xx Informational
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

// CompressConfig 控制壓縮等級。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// encoderPools 每個 middleware 實例各自一組 pool，等級不同的 encoder 不會混用。
type encoderPools struct {
	cfg  CompressConfig
	gzip sync.Pool
	zstd sync.Pool
}

func (p *encoderPools) getZstd(w io.Writer) (*zstd.Encoder, error) {
	if v := p.zstd.Get(); v != nil {
		zw := v.(*zstd.Encoder)
		zw.Reset(w)
		return zw, nil
	}
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(p.cfg.ZstdLevel),
		zstd.WithEncoderConcurrency(1),
	)
}

func (p *encoderPools) putZstd(zw *zstd.Encoder) {
	_ = zw.Close()
	p.zstd.Put(zw)
}

func (p *encoderPools) getGzip(w io.Writer) (*gzip.Writer, error) {
	if v := p.gzip.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw, nil
	}
	return gzip.NewWriterLevel(w, p.cfg.GzipLevel)
}

func (p *encoderPools) putGzip(gw *gzip.Writer) {
	_ = gw.Close()
	p.gzip.Put(gw)
}

type compressResponseWriter struct {
	http.ResponseWriter
	w        io.Writer // 指向 gzip.Writer 或 zstd.Encoder
	disabled bool      // 204/304 動態取消壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	// 壓縮後長度改變
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		if f, ok := cw.w.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Unwrap 讓 http.ResponseController 找到底層 writer。
func (cw *compressResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// Compression 以預設等級建立壓縮 middleware。
func Compression(next http.Handler) http.Handler {
	return CompressionWith(DefaultCompressConfig)(next)
}

// CompressionWith 依 Accept-Encoding 選擇 zstd > gzip > 不壓縮。
// HEAD、WebSocket 升級（/v1/events）、已帶 Content-Encoding 的回應直接放行。
func CompressionWith(cfg CompressConfig) func(http.Handler) http.Handler {
	pools := &encoderPools{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			if w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}

			encoding := r.Header.Get("Accept-Encoding")
			switch {
			case strings.Contains(encoding, "zstd"):
				zw, err := pools.getZstd(w)
				if err != nil {
					next.ServeHTTP(w, r)
					return
				}
				w.Header().Set("Content-Encoding", "zstd")
				w.Header().Add("Vary", "Accept-Encoding")
				cw := &compressResponseWriter{ResponseWriter: w, w: zw}
				defer func() {
					// 204/304 不能帶 frame footer
					if cw.disabled {
						zw.Reset(io.Discard)
					}
					pools.putZstd(zw)
				}()
				next.ServeHTTP(cw, r)

			case strings.Contains(encoding, "gzip"):
				gw, err := pools.getGzip(w)
				if err != nil {
					next.ServeHTTP(w, r)
					return
				}
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Add("Vary", "Accept-Encoding")
				cw := &compressResponseWriter{ResponseWriter: w, w: gw}
				defer func() {
					if cw.disabled {
						gw.Reset(io.Discard)
					}
					pools.putGzip(gw)
				}()
				next.ServeHTTP(cw, r)

			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
