package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler returns a JSON slog handler writing GELF messages over UDP
// to addr. The returned closer closes the UDP socket.
func NewGraylogHandler(addr string, opts *slog.HandlerOptions) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gelf writer: %w", err)
	}
	w.Facility = "realthrust"
	return slog.NewJSONHandler(w, opts), w, nil
}
