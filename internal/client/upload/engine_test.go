package upload

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/dpetrenko/filekeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Start_Success(t *testing.T) {
	var gotBody []byte
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = b
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := []byte("the entire file in one PUT")
	var percents []float64

	e := NewEngine(srv.Client(), logging.Nop{})
	err := e.Start(context.Background(), srv.URL, "application/pdf",
		bytes.NewReader(payload), int64(len(payload)),
		func(pct float64) { percents = append(percents, pct) })

	require.NoError(t, err)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "application/pdf", gotContentType)

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100.0, percents[len(percents)-1])
}

func TestEngine_Start_ServerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden) // expired presigned URL
	}))
	defer srv.Close()

	e := NewEngine(srv.Client(), logging.Nop{})
	err := e.Start(context.Background(), srv.URL, "", strings.NewReader("x"), 1, nil)

	var rejected *common.ServerRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusForbidden, rejected.StatusCode)
}

func TestEngine_Start_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	e := NewEngine(&http.Client{}, logging.Nop{})
	err := e.Start(context.Background(), srv.URL, "", strings.NewReader("x"), 1, nil)
	require.ErrorIs(t, err, common.ErrNetworkError)
}

func TestEngine_Start_Aborted(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	e := NewEngine(srv.Client(), logging.Nop{})
	err := e.Start(ctx, srv.URL, "", strings.NewReader("x"), 1, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProgressReader_ClampsAt100(t *testing.T) {
	// declared size smaller than actual bytes: percent must not exceed 100
	payload := strings.NewReader("0123456789")
	var last float64
	pr := &progressReader{r: payload, total: 4, onProgress: func(p float64) { last = p }}

	_, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, 100.0, last)
}
