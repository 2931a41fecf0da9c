package provider

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
)

// LogProvider accepts everything and logs it. Domains it creates report
// verified on the first status check.
type LogProvider struct {
	logger *zap.Logger

	mu      sync.Mutex
	domains map[string]*Domain
}

func NewLogProvider(logger *zap.Logger) *LogProvider {
	return &LogProvider{logger: logger, domains: make(map[string]*Domain)}
}

func (p *LogProvider) Send(_ context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	p.logger.Info("email sent (log provider)",
		zap.String("id", id),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return id, nil
}

func (p *LogProvider) CreateDomain(_ context.Context, name string) (*Domain, error) {
	d := &Domain{
		ID:     uuid.NewString(),
		Name:   name,
		Status: model.DomainPending,
		Records: []model.DNSRecord{
			{Type: "TXT", Name: "send." + name, Value: "v=spf1 include:amazonses.com ~all", Status: model.DomainPending},
			{Type: "MX", Name: "send." + name, Value: "feedback-smtp.us-east-1.amazonses.com", Priority: 10, Status: model.DomainPending},
			{Type: "TXT", Name: "resend._domainkey." + name, Value: "p=MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQ", Status: model.DomainPending},
		},
	}
	p.mu.Lock()
	p.domains[d.ID] = d
	p.mu.Unlock()
	p.logger.Info("domain registered (log provider)", zap.String("domain", name), zap.String("id", d.ID))
	return clone(d), nil
}

func (p *LogProvider) GetDomain(_ context.Context, id string) (*Domain, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.domains[id]
	if !ok {
		return &Domain{ID: id, Status: model.DomainVerified}, nil
	}
	d.Status = model.DomainVerified
	for i := range d.Records {
		d.Records[i].Status = model.DomainVerified
	}
	return clone(d), nil
}

func clone(d *Domain) *Domain {
	cp := *d
	cp.Records = append([]model.DNSRecord(nil), d.Records...)
	return &cp
}

var _ EmailProvider = (*LogProvider)(nil)
