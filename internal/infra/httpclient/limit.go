package httpclient

import (
	"errors"
	"fmt"
	"io"
)

// MaxPayloadBytes caps how much of a source or provider response is read.
// Real payloads are a few kilobytes; the largest is a week of planner pages.
const MaxPayloadBytes int64 = 8 << 20

var errPayloadTooLarge = errors.New("payload too large")

// readPayload reads at most limit bytes of r. A body that does not fit is an
// error matching errPayloadTooLarge; nothing is returned for it.
func readPayload(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", errPayloadTooLarge, limit)
	}
	return data, nil
}
