// Package provider talks to the transactional email API that delivers
// campaign mail and verifies sending domains.
package provider

import (
	"context"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Tags    map[string]string
}

// Domain is a sending domain as the provider reports it.
type Domain struct {
	ID      string
	Name    string
	Status  string
	Records []model.DNSRecord
}

type EmailProvider interface {
	// Send returns the provider's message id.
	Send(ctx context.Context, msg Message) (string, error)
	CreateDomain(ctx context.Context, name string) (*Domain, error)
	GetDomain(ctx context.Context, id string) (*Domain, error)
}
