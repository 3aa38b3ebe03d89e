package adapter

import (
	"context"
	"time"
)

// RemoteBinding is a hardware-address binding as the NAS reports it.
type RemoteBinding struct {
	ID         string
	MACAddress string
	Address    string
	Type       string
	Comment    string
}

type BindingRequest struct {
	MACAddress string
	Address    string // optional network address
	Server     string // optional hotspot server/zone tag
	Comment    string
	ExpiresAt  time.Time
}

// NASClient talks to the network equipment's binding API.
type NASClient interface {
	FindBindings(ctx context.Context, mac string) ([]RemoteBinding, error)
	// CreateBinding creates a bypass binding and returns its NAS id.
	CreateBinding(ctx context.Context, req BindingRequest) (string, error)
	RemoveBinding(ctx context.Context, id string) error
}
