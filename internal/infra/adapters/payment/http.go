package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"hotspot-billing/internal/domain"
)

// maxBody caps provider responses read into memory.
const maxBody = 1 << 20

// do sends req and decodes a JSON body into out when out is non-nil. Transport failures and
// undecodable bodies are reported as domain.ErrProviderUnavailable.
func do(client *http.Client, req *http.Request, out any) (int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}
	if out != nil && len(body) > 0 && resp.StatusCode < 500 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode body (status %d): %v", domain.ErrProviderUnavailable, resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}

func newJSONRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// parseAmount reads a provider amount given as a JSON number or string. Fractions are floored
// so a verified amount never rounds up to the expected one.
func parseAmount(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Floor(f)), true
}

func trimBase(u string) string { return strings.TrimRight(u, "/") }
