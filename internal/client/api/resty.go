package api

import (
	"context"
	"fmt"
	"time"

	"github.com/dpetrenko/filekeeper/internal/common"
	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	c *resty.Client
}

func NewRestyClient(baseURL string, timeout time.Duration) *RestyClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &RestyClient{c: c}
}

func (r *RestyClient) InitiateUpload(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {

	var result InitiateResult

	resp, err := r.c.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/uploads/initiate")

	if err != nil {
		return nil, fmt.Errorf("%w: initiate: %v", common.ErrBackendUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: initiate returned %s", common.ErrBackendUnavailable, resp.Status())
	}
	if result.URL == "" || result.FileID == "" {
		return nil, fmt.Errorf("%w: initiate returned incomplete response", common.ErrBackendUnavailable)
	}

	return &result, nil
}

func (r *RestyClient) CompleteUpload(ctx context.Context, fileID string) error {

	resp, err := r.c.R().
		SetContext(ctx).
		SetBody(map[string]string{"fileId": fileID}).
		Post("/uploads/complete")

	if err != nil {
		return fmt.Errorf("%w: complete: %v", common.ErrBackendUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: complete returned %s", common.ErrBackendUnavailable, resp.Status())
	}

	return nil
}

func (r *RestyClient) Ping(ctx context.Context) error {

	resp, err := r.c.R().SetContext(ctx).Get("/ping")

	if err != nil {
		return fmt.Errorf("%w: ping: %v", common.ErrBackendUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: ping returned %s", common.ErrBackendUnavailable, resp.Status())
	}

	return nil
}
