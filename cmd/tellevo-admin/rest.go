package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tellevo/tellevo-sdk-go/tellevo/rest"
)

const requestTimeout = 30 * time.Second

// restClient builds an API client from the loaded configuration.
func (a *app) restClient() (*rest.Client, error) {
	base := strings.TrimRight(a.cfg.APIURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("TELLEVO_API_URL must be an absolute http(s) URL, got %q", a.cfg.APIURL)
	}
	c := rest.NewClient(base)
	c.SetToken(a.cfg.Token)
	c.OnUnauthorized(func() {
		a.logger.Warn("token rejected by the backend, run tellevo-admin login")
	})
	return c, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeAPIError keeps the backend message and drops the transport noise.
func describeAPIError(err error) error {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.StatusCode)
	}
	return err
}
