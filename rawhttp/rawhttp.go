// Package rawhttp holds helpers for turning HTTP bodies into something readable:
// content decoding, prettifying and raw request dumps.
package rawhttp

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yosssi/gohtml"
)

// Prettify will attempt to prettify the body. JSON, XML and HTML are supported,
// anything else yields an empty slice.
func Prettify(bodyBytes []byte) ([]byte, error) {
	if len(bodyBytes) == 0 {
		return []byte{}, nil
	}

	trimmedBody := bytes.TrimSpace(bodyBytes)

	if output, ok, err := prettyJSON(trimmedBody); ok || err != nil {
		return output, err
	}

	if output, ok, err := prettyXML(trimmedBody); ok || err != nil {
		return output, err
	}

	if output, ok := prettyHTML(trimmedBody); ok {
		return output, nil
	}

	return []byte{}, nil
}

// PrettifyAs prettifies body using the declared content type first and falls back to
// sniffing the body when the type is unknown or the body does not match it.
func PrettifyAs(contentType string, bodyBytes []byte) ([]byte, error) {
	trimmedBody := bytes.TrimSpace(bodyBytes)
	if len(trimmedBody) == 0 {
		return []byte{}, nil
	}

	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "json"):
		if output, ok, err := prettyJSON(trimmedBody); ok || err != nil {
			return output, err
		}
	case strings.Contains(contentType, "html"):
		if output, ok := prettyHTML(trimmedBody); ok {
			return output, nil
		}
	case strings.Contains(contentType, "xml"):
		if output, ok, err := prettyXML(trimmedBody); ok || err != nil {
			return output, err
		}
	}
	return Prettify(trimmedBody)
}

func prettyJSON(body []byte) ([]byte, bool, error) {
	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err != nil {
		return nil, false, nil
	}
	output, err := json.MarshalIndent(jsonData, "", "  ")
	if err != nil {
		return []byte{}, false, fmt.Errorf("remarshalling JSON: %w", err)
	}
	return output, true, nil
}

func prettyXML(body []byte) ([]byte, bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil || doc.Root() == nil {
		return nil, false, nil
	}
	doc.Indent(1)
	var output bytes.Buffer
	if _, err := doc.WriteTo(&output); err != nil {
		return []byte{}, false, fmt.Errorf("writing indented XML : %w", err)
	}
	return output.Bytes(), true, nil
}

func prettyHTML(body []byte) ([]byte, bool) {
	contentType := mimetype.Detect(body).String()
	if !strings.Contains(contentType, "text/html") &&
		!(bytes.HasPrefix(body, []byte("<")) && !bytes.HasPrefix(body, []byte("<?xml"))) {
		return nil, false
	}
	output := gohtml.FormatBytes(body)
	if len(output) == 0 || bytes.Equal(output, body) {
		return nil, false
	}
	return output, true
}

// DetectContentType sniffs the media type of body, used when a response carries no
// Content-Type header.
func DetectContentType(body []byte) string {
	return mimetype.Detect(body).String()
}

// DecodeBody reverses a gzip or br Content-Encoding. Other encodings, including identity,
// return the body unchanged with ok set to false.
func DecodeBody(encoding string, body []byte) (decoded []byte, ok bool, err error) {
	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		gzipReader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	default:
		return body, false, nil
	}

	decoded, err = io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s content : %w", encoding, err)
	}
	return decoded, true, nil
}

// DumpRequest takes a *http.Request, dumps the raw request and resets the body so it can be consumed
// Returns the full dump, prettified dump and an error
func DumpRequest(req *http.Request) (rawDump []byte, prettyDump string, err error) {
	requestDump, err := httputil.DumpRequest(req, false)
	if err != nil {
		return []byte{}, "", fmt.Errorf("dumping request : %w", err)
	}

	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return []byte{}, "", fmt.Errorf("reading request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	fullDump := append(requestDump, bodyBytes...)
	prettified, err := PrettifyAs(req.Header.Get("Content-Type"), bodyBytes)
	if err != nil || len(prettified) == 0 {
		return fullDump, "", nil
	}

	// appending twice with requestDump will lead to truncating fullDump
	prettyHeaders := make([]byte, len(requestDump))
	copy(prettyHeaders, requestDump)

	prettifiedDump := append(prettyHeaders, prettified...)
	return fullDump, string(prettifiedDump), nil
}
