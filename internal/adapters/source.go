package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"productmd/internal/ports"
	"productmd/internal/shared"
)

const defaultHTTPTimeout = 60 * time.Second
const defaultHTTPRetries = 3
const defaultHTTPRetryDelay = 200 * time.Millisecond
const maxHTTPRetryDelay = 2 * time.Second

type SourceConfig struct {
	HTTPTimeoutSec int
	HTTPRetries    int
}

// SourceAdapter reads local files and http(s) URLs. Content whose name
// ends in ".gz" is decompressed.
type SourceAdapter struct {
	client *retryablehttp.Client
}

func NewSourceAdapter(cfg SourceConfig) SourceAdapter {
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	retries := cfg.HTTPRetries
	if retries <= 0 {
		retries = defaultHTTPRetries
	}
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = defaultHTTPRetryDelay
	client.RetryWaitMax = maxHTTPRetryDelay
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	return SourceAdapter{client: client}
}

func (a SourceAdapter) Read(ctx context.Context, location string) ([]byte, error) {
	var data []byte
	var err error
	if shared.IsURL(location) {
		data, err = a.fetch(ctx, location)
	} else {
		data, err = readLocal(location)
	}
	if err != nil {
		return nil, err
	}
	if _, compressed := shared.TrimCompression(location); compressed {
		data, err = gunzip(data, location)
		if err != nil {
			return nil, err
		}
	}
	log.Debug().
		Str("location", location).
		Int("bytes", len(data)).
		Msg("manifest source read")
	return data, nil
}

func (a SourceAdapter) Exists(ctx context.Context, location string) (bool, error) {
	if !shared.IsURL(location) {
		_, err := os.Stat(location)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat " + location).
			WithCause(err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		return false, requestError(err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (a SourceAdapter) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, requestError(err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, shared.HTTPStatusError(resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read response body").
			WithCause(err)
	}
	return data, nil
}

func requestError(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to create request").
		WithCause(err)
}

func readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errbuilder.CodeInternal
		if os.IsNotExist(err) {
			code = errbuilder.CodeNotFound
		}
		return nil, errbuilder.New().
			WithCode(code).
			WithMsg("failed to read " + path).
			WithCause(err)
	}
	return data, nil
}

func gunzip(data []byte, location string) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid gzip content in " + location).
			WithCause(err)
	}
	defer reader.Close()
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to decompress " + location).
			WithCause(err)
	}
	return out, nil
}

var _ ports.ByteSourcePort = SourceAdapter{}
