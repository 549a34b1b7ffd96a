package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// SupportedEncodings is advertised upstream when compression is enabled.
const SupportedEncodings = "gzip, deflate, br, zstd"

// DecodeChain decodes body according to a Content-Encoding value. Chained
// encodings ("gzip, br") are undone right to left. It returns the decoded
// body and whether anything was decoded.
func DecodeChain(contentEncoding string, body []byte) ([]byte, bool, error) {
	if strings.TrimSpace(contentEncoding) == "" {
		return body, false, nil
	}
	codings := strings.Split(contentEncoding, ",")
	changed := false
	for i := len(codings) - 1; i >= 0; i-- {
		coding := normalizeCoding(codings[i])
		var (
			out []byte
			err error
		)
		switch coding {
		case "br":
			out, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		case "gzip", "x-gzip":
			out, err = readGzip(body)
		case "zstd":
			out, err = readZstd(body)
		case "deflate":
			out, err = readDeflate(body)
		case "identity", "":
			continue
		default:
			return nil, false, fmt.Errorf("unsupported content-encoding: %q", coding)
		}
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", coding, err)
		}
		body = out
		changed = true
	}
	return body, changed, nil
}

// AcceptsEncoding reports whether an Accept-Encoding header value allows
// every coding listed in contentEncoding.
func AcceptsEncoding(acceptEncoding, contentEncoding string) bool {
	accepted := make(map[string]bool)
	wildcard := false
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, q := parseAcceptPart(part)
		if name == "" {
			continue
		}
		if name == "*" {
			wildcard = q > 0
			continue
		}
		accepted[name] = q > 0
	}

	for _, coding := range strings.Split(contentEncoding, ",") {
		coding = normalizeCoding(coding)
		if coding == "" || coding == "identity" {
			continue
		}
		if coding == "x-gzip" {
			coding = "gzip"
		}
		ok, listed := accepted[coding]
		if listed && !ok {
			return false
		}
		if !listed && !wildcard {
			return false
		}
	}
	return true
}

func parseAcceptPart(part string) (string, float64) {
	fields := strings.Split(part, ";")
	name := normalizeCoding(fields[0])
	q := 1.0
	for _, param := range fields[1:] {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(param, "q=") {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimPrefix(param, "q="), 64); err == nil {
			q = v
		}
	}
	return name, q
}

func normalizeCoding(coding string) string {
	return strings.TrimSpace(strings.ToLower(coding))
}

func readGzip(body []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

func readZstd(body []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// readDeflate accepts zlib-wrapped data (RFC 9110) and falls back to raw
// DEFLATE, which some servers send instead.
func readDeflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer zr.Close()
		return io.ReadAll(zr)
	}
	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	return io.ReadAll(fr)
}
