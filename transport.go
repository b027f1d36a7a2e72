package courier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/tfkr-ae/courier/domain"
	"github.com/tfkr-ae/courier/rawhttp"
)

// Sender dispatches a prepared request and returns the response.
type Sender interface {
	Send(ctx context.Context, req *PreparedRequest) (*domain.Response, error)
}

var _ Sender = (*Client)(nil)

var supportedMethods = []string{
	domain.MethodGet,
	domain.MethodPost,
	domain.MethodPut,
	domain.MethodPatch,
	domain.MethodDelete,
	domain.MethodHead,
	domain.MethodOptions,
}

var rawBodyContentTypes = map[string]string{
	domain.BodyJSON: "application/json",
	domain.BodyXML:  "application/xml",
	domain.BodyText: "text/plain",
	domain.BodyHTML: "text/html",
}

// Client is the default Sender. It speaks HTTP/1.1 with a Chrome TLS fingerprint.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client honouring the timeout, redirect and certificate settings of cfg.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	httpClient := &http.Client{
		Transport: newChromeTransport(!cfg.ValidateSSL),
		Timeout:   cfg.Timeout(),
	}
	if !cfg.FollowRedirects {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &Client{httpClient: httpClient}
}

// newChromeTransport dials TLS through utls with a Chrome hello, pinned to http/1.1.
func newChromeTransport(insecureSkipVerify bool) *http.Transport {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		sniHost, _, err := net.SplitHostPort(addr)
		if err != nil {
			sniHost = addr
		}

		uConn := utls.UClient(tcpConn, &utls.Config{
			ServerName:         sniHost,
			InsecureSkipVerify: insecureSkipVerify,
		}, utls.HelloChrome_Auto)

		if err := uConn.BuildHandshakeState(); err != nil {
			tcpConn.Close()
			return nil, fmt.Errorf("buildling handshake state : %w", err)
		}

		// HelloChrome_Auto ignores Config.NextProtos and offers h2, so the ALPN extension
		// is rewritten before the handshake.
		foundALPN := false
		for _, ext := range uConn.Extensions {
			if alpnExt, ok := ext.(*utls.ALPNExtension); ok {
				alpnExt.AlpnProtocols = []string{"http/1.1"}
				foundALPN = true
				break
			}
		}
		if !foundALPN {
			tcpConn.Close()
			return nil, errors.New("could not find ALPNExtension")
		}

		if err := uConn.HandshakeContext(ctx); err != nil {
			tcpConn.Close()
			return nil, err
		}
		return uConn, nil
	}
	return transport
}

// Send executes req and reads the whole response. gzip and br bodies are decoded and JSON,
// XML and HTML bodies are prettified into PrettyBody.
func (c *Client) Send(ctx context.Context, req *PreparedRequest) (*domain.Response, error) {
	httpReq, err := NewHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending %s %s: %w", httpReq.Method, httpReq.URL, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	elapsed := time.Since(start)

	body := raw
	if decoded, ok, err := rawhttp.DecodeBody(res.Header.Get("Content-Encoding"), raw); err == nil && ok {
		body = decoded
	}

	statusText := http.StatusText(res.StatusCode)
	if statusText == "" {
		statusText = "Unknown"
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" && len(body) > 0 {
		contentType = rawhttp.DetectContentType(body)
	}

	response := &domain.Response{
		Status:      res.StatusCode,
		StatusText:  statusText,
		Headers:     responseHeaders(res.Header),
		Body:        string(body),
		ContentType: contentType,
		Elapsed:     elapsed,
		Size:        int64(len(raw)),
	}
	if pretty, err := rawhttp.PrettifyAs(contentType, body); err == nil {
		response.PrettyBody = string(pretty)
	}
	return response, nil
}

func responseHeaders(header http.Header) []domain.Header {
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	headers := []domain.Header{}
	for _, key := range keys {
		for _, value := range header[key] {
			headers = append(headers, domain.Header{Key: key, Value: value})
		}
	}
	return headers
}

// NewHTTPRequest builds the outgoing *http.Request for a prepared request. Enabled params are
// appended to the URL query in order, enabled headers are set, and the body is encoded
// according to BodyType. A URL without a scheme is sent over http.
func NewHTTPRequest(ctx context.Context, req *PreparedRequest) (*http.Request, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = domain.MethodGet
	}
	if !slices.Contains(supportedMethods, method) {
		return nil, &ValidationError{Field: "method", Reason: fmt.Sprintf("unsupported HTTP method %q", req.Method)}
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return nil, &ValidationError{Field: "url", Reason: "must not be empty"}
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	if query := encodeEnabled(req.Params); query != "" {
		if strings.Contains(rawURL, "?") {
			rawURL += "&" + query
		} else {
			rawURL += "?" + query
		}
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &ValidationError{Field: "url", Reason: err.Error()}
	}

	for _, header := range req.Headers {
		if !header.Enabled || header.Key == "" {
			continue
		}
		if strings.EqualFold(header.Key, "Host") {
			httpReq.Host = header.Value
			continue
		}
		httpReq.Header.Set(header.Key, header.Value)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// encodeEnabled renders enabled rows with a key as a urlencoded string, keeping their order.
func encodeEnabled(rows []domain.KeyValue) string {
	pairs := []string{}
	for _, row := range rows {
		if !row.Enabled || row.Key == "" {
			continue
		}
		pairs = append(pairs, url.QueryEscape(row.Key)+"="+url.QueryEscape(row.Value))
	}
	return strings.Join(pairs, "&")
}

func encodeBody(req *PreparedRequest) (io.Reader, string, error) {
	if contentType, ok := rawBodyContentTypes[req.BodyType]; ok {
		return strings.NewReader(req.Body), contentType, nil
	}

	switch req.BodyType {
	case domain.BodyFormURLEncoded:
		rows := make([]domain.KeyValue, 0, len(req.FormData))
		for _, item := range req.FormData {
			rows = append(rows, domain.KeyValue{Key: item.Key, Value: item.Value, Enabled: item.Enabled})
		}
		return strings.NewReader(encodeEnabled(rows)), "application/x-www-form-urlencoded", nil
	case domain.BodyFormData:
		return encodeMultipart(req.FormData)
	default:
		return nil, "", nil
	}
}

// encodeMultipart writes enabled form items as multipart parts. File items are read from the
// local path held in their value.
func encodeMultipart(items []domain.FormItem) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, item := range items {
		if !item.Enabled || item.Key == "" {
			continue
		}

		if item.Type != domain.FormItemFile {
			if err := writer.WriteField(item.Key, item.Value); err != nil {
				return nil, "", fmt.Errorf("writing form field %s: %w", item.Key, err)
			}
			continue
		}

		contents, err := os.ReadFile(item.Value)
		if err != nil {
			return nil, "", fmt.Errorf("reading form file %s: %w", item.Value, err)
		}
		part, err := writer.CreateFormFile(item.Key, filepath.Base(item.Value))
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", item.Key, err)
		}
		if _, err := part.Write(contents); err != nil {
			return nil, "", fmt.Errorf("writing form file %s: %w", item.Key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
