package domain

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Header is a response header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of sending a prepared request.
type Response struct {
	Status      int           // HTTP status code (e.g., 200, 404).
	StatusText  string        // Reason phrase (e.g., "OK").
	Headers     []Header      // Response headers sorted by name.
	Body        string        // Decoded response body.
	PrettyBody  string        // Indented JSON, XML or HTML body, empty when not applicable.
	ContentType string        // Content-Type header, sniffed from the body when absent.
	Elapsed     time.Duration // Time from dispatch until the body was read.
	Size        int64         // Body size in bytes as received, before decoding.
}

// SizeLabel renders the body size for display, e.g. "1.5 kB".
func (r *Response) SizeLabel() string {
	return humanize.Bytes(uint64(r.Size))
}

// ElapsedLabel renders the elapsed time for display, "120 ms" or "1.25 s".
func (r *Response) ElapsedLabel() string {
	ms := r.Elapsed.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", r.Elapsed.Seconds())
}
