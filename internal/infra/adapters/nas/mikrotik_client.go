package nas

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.NASClient = (*MikroTikClient)(nil)

const bindingPath = "/ip/hotspot/ip-binding"

// ErrRemote wraps non-2xx answers from the router.
var ErrRemote = errors.New("nas: remote call failed")

// MikroTikClient drives RouterOS hotspot IP bindings through the RouterOS v7 REST API.
type MikroTikClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func NewMikroTikClient(cfg config.NASConfig) (*MikroTikClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("nas: base url empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("nas: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		// RouterOS ships a self-signed certificate by default.
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &MikroTikClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout, Transport: tr},
	}, nil
}

type routerBinding struct {
	ID         string `json:".id,omitempty"`
	MACAddress string `json:"mac-address,omitempty"`
	Address    string `json:"address,omitempty"`
	Type       string `json:"type,omitempty"`
	Server     string `json:"server,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

func (c *MikroTikClient) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRemote, method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		var re struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		_ = json.Unmarshal(raw, &re)
		return fmt.Errorf("%w: %s %s: status %d: %s %s", ErrRemote, method, path, resp.StatusCode, re.Message, re.Detail)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode: %v", ErrRemote, err)
		}
	}
	return nil
}

// FindBindings prints the bindings registered for mac.
func (c *MikroTikClient) FindBindings(ctx context.Context, mac string) ([]adapter.RemoteBinding, error) {
	var list []routerBinding
	if err := c.call(ctx, http.MethodGet, bindingPath+"?mac-address="+url.QueryEscape(mac), nil, &list); err != nil {
		return nil, err
	}
	out := make([]adapter.RemoteBinding, 0, len(list))
	for _, b := range list {
		out = append(out, adapter.RemoteBinding{ID: b.ID, MACAddress: b.MACAddress, Address: b.Address, Type: b.Type, Comment: b.Comment})
	}
	return out, nil
}

// CreateBinding adds a bypassed binding. RouterOS has no binding expiry; removal after
// ExpiresAt is done by the binding worker.
func (c *MikroTikClient) CreateBinding(ctx context.Context, r adapter.BindingRequest) (string, error) {
	in := routerBinding{
		MACAddress: r.MACAddress,
		Address:    r.Address,
		Type:       "bypassed",
		Server:     r.Server,
		Comment:    r.Comment,
	}
	var created routerBinding
	if err := c.call(ctx, http.MethodPut, bindingPath, in, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: create returned no id", ErrRemote)
	}
	return created.ID, nil
}

// RemoveBinding deletes the binding; a binding that is already gone is not an error.
func (c *MikroTikClient) RemoveBinding(ctx context.Context, id string) error {
	err := c.call(ctx, http.MethodDelete, bindingPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil && strings.Contains(err.Error(), "status 404") {
		return nil
	}
	return err
}
