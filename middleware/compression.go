/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// Compression re-encodes the upstream response body in the first of br,
// gzip and deflate (in that fixed order) that the client lists in
// Accept-Encoding; the order of the client's list plays no part. Responses
// that already carry a Content-Encoding, or whose client sent no recognized
// encoding, pass through untouched.
type Compression struct{}

var compressionPreferenceOrder = []string{"br", "gzip", "deflate"}

func (Compression) Handle(req *http.Request, next Next) (*http.Response, error) {
	resp, err := next(req)
	if err != nil || resp == nil {
		return resp, err
	}

	if resp.Header.Get("Content-Encoding") != "" {
		return resp, nil
	}

	enc := negotiate(req.Header.Get("Accept-Encoding"))
	if enc == "" {
		return resp, nil
	}

	body, rerr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if rerr != nil {
		return nil, rerr
	}

	compressed, cerr := compress(enc, body)
	if cerr != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		resp.ContentLength = int64(len(body))
		return resp, nil
	}

	resp.Body = io.NopCloser(bytes.NewReader(compressed))
	resp.ContentLength = int64(len(compressed))
	resp.Header.Set("Content-Encoding", enc)
	resp.Header.Set("Vary", appendVary(resp.Header.Get("Vary")))

	return resp, nil
}

func negotiate(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}

	offered := make(map[string]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		fields := strings.SplitN(part, ";", 2)
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if len(fields) == 2 && strings.Contains(strings.ReplaceAll(fields[1], " ", ""), "q=0") {
			continue
		}
		offered[name] = true
	}

	for _, candidate := range compressionPreferenceOrder {
		if offered[candidate] {
			return candidate
		}
	}
	return ""
}

func compress(encoding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer

	switch encoding {
	case "br":
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "gzip":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "deflate":
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func appendVary(existing string) string {
	if existing == "" {
		return "Accept-Encoding"
	}
	for _, v := range strings.Split(existing, ",") {
		if strings.EqualFold(strings.TrimSpace(v), "Accept-Encoding") {
			return existing
		}
	}
	return existing + ", Accept-Encoding"
}
