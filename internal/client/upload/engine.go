package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/logging"
)

// progressFunc receives transfer progress as a percent in [0, 100].
type progressFunc func(percent float64)

// minimum interval between progress callbacks; the terminal 100% tick is
// always delivered
const progressTick = 100 * time.Millisecond

// Engine performs the byte transmission for one upload: a single PUT of
// the entire file against the record's presigned URL. It holds no state of
// its own; the manager owns record mutation and cancellation.
type Engine struct {
	client *http.Client
	logger logging.Logger
}

func NewEngine(client *http.Client, logger logging.Logger) *Engine {
	if client == nil {
		client = &http.Client{}
	}
	return &Engine{client: client, logger: logger}
}

// Start streams body to targetURL and blocks until the transfer reaches a
// terminal outcome. It returns nil on 2xx, ctx.Err() when aborted through
// the context, *common.ServerRejectedError on a non-2xx response and a
// common.ErrNetworkError-wrapped error on transport failure.
func (e *Engine) Start(ctx context.Context, targetURL, contentType string, body io.Reader, size int64, onProgress progressFunc) error {

	pr := &progressReader{r: body, total: size, onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, targetURL, pr)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", common.ErrNetworkError, err)
	}
	req.ContentLength = size
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", common.ErrNetworkError, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &common.ServerRejectedError{StatusCode: resp.StatusCode}
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// progressReader counts bytes as the transport consumes them and reports
// percent at most once per progressTick. Percent is monotonic by
// construction: the count only grows.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	lastReport time.Time
	onProgress progressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)

	if p.onProgress != nil && p.total > 0 {
		now := time.Now()
		if now.Sub(p.lastReport) >= progressTick || errors.Is(err, io.EOF) {
			p.lastReport = now
			pct := float64(p.sent) / float64(p.total) * 100
			if pct > 100 {
				pct = 100
			}
			p.onProgress(pct)
		}
	}

	return n, err
}
