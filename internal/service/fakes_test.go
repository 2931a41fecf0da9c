package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/provider"
	"github.com/wech4801-eng/mirror-frame-forge/internal/queue"
	"github.com/wech4801-eng/mirror-frame-forge/internal/relay"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
)

// In-memory repositories standing in for Postgres.

func paginate[T any](items []T, page model.PageRequest) ([]T, int) {
	total := len(items)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit()
	if end > total {
		end = total
	}
	return items[start:end], total
}

// ====================== Prospects ======================

type fakeProspectRepo struct {
	mu        sync.Mutex
	prospects map[uuid.UUID]*model.Prospect
	order     []uuid.UUID
}

func newFakeProspectRepo() *fakeProspectRepo {
	return &fakeProspectRepo{prospects: map[uuid.UUID]*model.Prospect{}}
}

func (r *fakeProspectRepo) Create(_ context.Context, p *model.Prospect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(p) {
		return appErrors.Conflict("prospect %s already exists", p.Email)
	}
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	r.prospects[p.ID] = cloneProspect(p)
	r.order = append(r.order, p.ID)
	return nil
}

// emailTaken mirrors the partial unique index on (user_id, lower(email))
// WHERE email <> ''.
func (r *fakeProspectRepo) emailTaken(p *model.Prospect) bool {
	if p.Email == "" {
		return false
	}
	for _, existing := range r.prospects {
		if existing.ID != p.ID && existing.UserID == p.UserID && strings.EqualFold(existing.Email, p.Email) {
			return true
		}
	}
	return false
}

func cloneProspect(p *model.Prospect) *model.Prospect {
	cp := *p
	cp.GroupIDs = append([]uuid.UUID(nil), p.GroupIDs...)
	return &cp
}

func (r *fakeProspectRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prospects[id]
	if !ok {
		return nil, appErrors.NotFound("prospect", id)
	}
	return cloneProspect(p), nil
}

func (r *fakeProspectRepo) FindByEmail(_ context.Context, userID uuid.UUID, email string) (*model.Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.prospects {
		if email != "" && p.UserID == userID && strings.EqualFold(p.Email, email) {
			return cloneProspect(p), nil
		}
	}
	return nil, nil
}

func (r *fakeProspectRepo) all(userID uuid.UUID, keep func(*model.Prospect) bool) []*model.Prospect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Prospect{}
	for _, id := range r.order {
		p, ok := r.prospects[id]
		if ok && p.UserID == userID && keep(p) {
			out = append(out, cloneProspect(p))
		}
	}
	return out
}

func (r *fakeProspectRepo) List(_ context.Context, f model.ProspectFilter, page model.PageRequest) ([]*model.Prospect, int, error) {
	items := r.all(f.UserID, func(p *model.Prospect) bool {
		return (f.Status == "" || p.Status == f.Status) && (f.GroupID == nil || hasID(p.GroupIDs, *f.GroupID))
	})
	items, total := paginate(items, page)
	return items, total, nil
}

func (r *fakeProspectRepo) ListByIDs(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*model.Prospect, error) {
	return r.all(userID, func(p *model.Prospect) bool { return hasID(ids, p.ID) }), nil
}

func (r *fakeProspectRepo) ListByGroups(_ context.Context, userID uuid.UUID, groupIDs []uuid.UUID) ([]*model.Prospect, error) {
	return r.all(userID, func(p *model.Prospect) bool {
		if len(groupIDs) == 0 {
			return true
		}
		for _, g := range groupIDs {
			if hasID(p.GroupIDs, g) {
				return true
			}
		}
		return false
	}), nil
}

func (r *fakeProspectRepo) Update(_ context.Context, p *model.Prospect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.prospects[p.ID]
	if !ok {
		return appErrors.NotFound("prospect", p.ID)
	}
	if r.emailTaken(p) {
		return appErrors.Conflict("prospect %s already exists", p.Email)
	}
	p.UpdatedAt = time.Now()
	cp := cloneProspect(p)
	cp.GroupIDs = stored.GroupIDs
	r.prospects[p.ID] = cp
	return nil
}

func (r *fakeProspectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prospects[id]; !ok {
		return appErrors.NotFound("prospect", id)
	}
	delete(r.prospects, id)
	return nil
}

func (r *fakeProspectRepo) BulkDelete(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if p, ok := r.prospects[id]; ok && p.UserID == userID {
			delete(r.prospects, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeProspectRepo) SetGroups(_ context.Context, prospectID uuid.UUID, groupIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prospects[prospectID].GroupIDs = append([]uuid.UUID(nil), groupIDs...)
	return nil
}

func (r *fakeProspectRepo) AddToGroup(_ context.Context, prospectID, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.prospects[prospectID]
	if !hasID(p.GroupIDs, groupID) {
		p.GroupIDs = append(p.GroupIDs, groupID)
	}
	return nil
}

func hasID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ====================== Groups ======================

type fakeGroupRepo struct {
	groups    map[uuid.UUID]*model.Group
	prospects *fakeProspectRepo
}

func newFakeGroupRepo(prospects *fakeProspectRepo) *fakeGroupRepo {
	return &fakeGroupRepo{groups: map[uuid.UUID]*model.Group{}, prospects: prospects}
}

func (r *fakeGroupRepo) Create(_ context.Context, g *model.Group) error {
	g.ID = uuid.New()
	r.groups[g.ID] = g
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, appErrors.NotFound("group", id)
	}
	return g, nil
}

func (r *fakeGroupRepo) List(_ context.Context, userID uuid.UUID) ([]*model.Group, error) {
	out := []*model.Group{}
	for _, g := range r.groups {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeGroupRepo) Update(_ context.Context, g *model.Group) error {
	r.groups[g.ID] = g
	return nil
}

func (r *fakeGroupRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.groups, id)
	return nil
}

func (r *fakeGroupRepo) AddProspects(ctx context.Context, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error) {
	g := r.groups[groupID]
	var n int64
	for _, id := range prospectIDs {
		p, err := r.prospects.GetByID(ctx, id)
		if err != nil || p.UserID != g.UserID || hasID(p.GroupIDs, groupID) {
			continue
		}
		_ = r.prospects.AddToGroup(ctx, id, groupID)
		n++
	}
	return n, nil
}

func (r *fakeGroupRepo) RemoveProspects(_ context.Context, groupID uuid.UUID, prospectIDs []uuid.UUID) (int64, error) {
	r.prospects.mu.Lock()
	defer r.prospects.mu.Unlock()
	var n int64
	for _, id := range prospectIDs {
		p, ok := r.prospects.prospects[id]
		if !ok || !hasID(p.GroupIDs, groupID) {
			continue
		}
		kept := []uuid.UUID{}
		for _, g := range p.GroupIDs {
			if g != groupID {
				kept = append(kept, g)
			}
		}
		p.GroupIDs = kept
		n++
	}
	return n, nil
}

// ====================== Routing rules ======================

type fakeRuleRepo struct {
	rules map[uuid.UUID]*model.RoutingRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: map[uuid.UUID]*model.RoutingRule{}}
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *model.RoutingRule) error {
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*model.RoutingRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, appErrors.NotFound("routing rule", id)
	}
	return rule, nil
}

func (r *fakeRuleRepo) List(_ context.Context, userID uuid.UUID) ([]*model.RoutingRule, error) {
	out := []*model.RoutingRule{}
	for _, rule := range r.rules {
		if rule.UserID == userID {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (r *fakeRuleRepo) ListActive(ctx context.Context, userID uuid.UUID) ([]*model.RoutingRule, error) {
	all, _ := r.List(ctx, userID)
	out := []*model.RoutingRule{}
	for _, rule := range all {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *model.RoutingRule) error {
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.rules, id)
	return nil
}

// ====================== Templates ======================

type fakeTemplateRepo struct {
	templates map[uuid.UUID]*model.EmailTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[uuid.UUID]*model.EmailTemplate{}}
}

func (r *fakeTemplateRepo) Create(_ context.Context, t *model.EmailTemplate) error {
	t.ID = uuid.New()
	r.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*model.EmailTemplate, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, appErrors.NotFound("email template", id)
	}
	return t, nil
}

func (r *fakeTemplateRepo) List(_ context.Context, userID uuid.UUID, category string, page model.PageRequest) ([]*model.EmailTemplate, int, error) {
	out := []*model.EmailTemplate{}
	for _, t := range r.templates {
		if t.UserID == userID && (category == "" || t.Category == category) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	items, total := paginate(out, page)
	return items, total, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, t *model.EmailTemplate) error {
	r.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.templates, id)
	return nil
}

// ====================== Brandings ======================

type fakeBrandingRepo struct {
	brandings map[uuid.UUID]*model.Branding
}

func newFakeBrandingRepo() *fakeBrandingRepo {
	return &fakeBrandingRepo{brandings: map[uuid.UUID]*model.Branding{}}
}

func (r *fakeBrandingRepo) Create(ctx context.Context, b *model.Branding) error {
	b.ID = uuid.New()
	r.brandings[b.ID] = b
	if b.IsDefault {
		return r.SetDefault(ctx, b.UserID, b.ID)
	}
	return nil
}

func (r *fakeBrandingRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Branding, error) {
	b, ok := r.brandings[id]
	if !ok {
		return nil, appErrors.NotFound("branding", id)
	}
	return b, nil
}

func (r *fakeBrandingRepo) GetDefault(_ context.Context, userID uuid.UUID) (*model.Branding, error) {
	for _, b := range r.brandings {
		if b.UserID == userID && b.IsDefault {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBrandingRepo) List(_ context.Context, userID uuid.UUID) ([]*model.Branding, error) {
	out := []*model.Branding{}
	for _, b := range r.brandings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBrandingRepo) Update(_ context.Context, b *model.Branding) error {
	r.brandings[b.ID] = b
	return nil
}

func (r *fakeBrandingRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.brandings, id)
	return nil
}

func (r *fakeBrandingRepo) SetDefault(_ context.Context, userID, id uuid.UUID) error {
	for _, b := range r.brandings {
		if b.UserID == userID {
			b.IsDefault = b.ID == id
		}
	}
	return nil
}

// ====================== Campaigns ======================

type fakeCampaignRepo struct {
	mu         sync.Mutex
	campaigns  map[uuid.UUID]*model.Campaign
	recipients map[uuid.UUID]*model.CampaignRecipient
	order      []uuid.UUID
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{
		campaigns:  map[uuid.UUID]*model.Campaign{},
		recipients: map[uuid.UUID]*model.CampaignRecipient{},
	}
}

func (r *fakeCampaignRepo) ListCampaigns(_ context.Context, f model.CampaignFilter, page model.PageRequest) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.UserID == f.UserID && (f.Status == "" || c.Status == f.Status) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	items, total := paginate(out, page)
	return items, total, nil
}

func (r *fakeCampaignRepo) ListDue(_ context.Context, now time.Time) ([]*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.Status == model.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NotFound("campaign", id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) status(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

func (r *fakeCampaignRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return appErrors.NotFound("campaign", id)
	}
	c.Status = status
	return nil
}

func (r *fakeCampaignRepo) MarkFinished(_ context.Context, id uuid.UUID, status string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.campaigns[id]
	if c.Status == model.CampaignSending {
		c.Status = status
		c.SentAt = &sentAt
	}
	return nil
}

func (r *fakeCampaignRepo) Update(_ context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

func (r *fakeCampaignRepo) CreateRecipient(_ context.Context, campaignID, prospectID uuid.UUID, email string) (*model.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.ProspectID == prospectID {
			cp := *rec
			return &cp, nil
		}
	}
	rec := &model.CampaignRecipient{
		ID:         uuid.New(),
		CampaignID: campaignID,
		ProspectID: prospectID,
		Email:      email,
		Status:     model.RecipientPending,
	}
	r.recipients[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	cp := *rec
	return &cp, nil
}

func (r *fakeCampaignRepo) GetRecipient(_ context.Context, id uuid.UUID) (*model.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipients[id]
	if !ok {
		return nil, appErrors.NotFound("campaign recipient", id)
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeCampaignRepo) UpdateRecipientContent(_ context.Context, id uuid.UUID, subject, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.recipients[id]
	rec.RenderedSubject, rec.RenderedContent = subject, content
	return nil
}

func (r *fakeCampaignRepo) UpdateRecipientStatus(_ context.Context, id uuid.UUID, status, providerID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.recipients[id]
	rec.Status, rec.LastError = status, lastError
	if providerID != "" {
		rec.ProviderID = providerID
	}
	if lastError != "" {
		rec.RetryCount++
	}
	if status == model.RecipientSent {
		now := time.Now()
		rec.SentAt = &now
	}
	return nil
}

func (r *fakeCampaignRepo) ListRecipients(_ context.Context, campaignID uuid.UUID, status string, page model.PageRequest) ([]*model.CampaignRecipient, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.CampaignRecipient{}
	for _, id := range r.order {
		rec := r.recipients[id]
		if rec.CampaignID == campaignID && (status == "" || rec.Status == status) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (r *fakeCampaignRepo) GetCampaignStats(_ context.Context, campaignID uuid.UUID) (model.CampaignStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s model.CampaignStats
	for _, rec := range r.recipients {
		if rec.CampaignID != campaignID {
			continue
		}
		s.Total++
		switch rec.Status {
		case model.RecipientPending:
			s.Pending++
		case model.RecipientSent:
			s.Sent++
		case model.RecipientFailed:
			s.Failed++
		}
	}
	return s, nil
}

// ====================== Workflows ======================

type fakeWorkflowRepo struct {
	workflows map[uuid.UUID]*model.Workflow
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{workflows: map[uuid.UUID]*model.Workflow{}}
}

func (r *fakeWorkflowRepo) Create(_ context.Context, w *model.Workflow) error {
	w.ID = uuid.New()
	r.workflows[w.ID] = w
	return nil
}

func (r *fakeWorkflowRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Workflow, error) {
	w, ok := r.workflows[id]
	if !ok {
		return nil, appErrors.NotFound("workflow", id)
	}
	return w, nil
}

func (r *fakeWorkflowRepo) List(_ context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Workflow, int, error) {
	out := []*model.Workflow{}
	for _, w := range r.workflows {
		if w.UserID == userID && (status == "" || w.Status == status) {
			out = append(out, w)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (r *fakeWorkflowRepo) Update(_ context.Context, w *model.Workflow) error {
	r.workflows[w.ID] = w
	return nil
}

func (r *fakeWorkflowRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.workflows, id)
	return nil
}

// ====================== Webinars ======================

type fakeWebinarRepo struct {
	webinars    map[uuid.UUID]*model.Webinar
	chat        []*model.WebinarChatMessage
	invitations map[uuid.UUID]*model.WebinarInvitation
}

func newFakeWebinarRepo() *fakeWebinarRepo {
	return &fakeWebinarRepo{
		webinars:    map[uuid.UUID]*model.Webinar{},
		invitations: map[uuid.UUID]*model.WebinarInvitation{},
	}
}

func (r *fakeWebinarRepo) Create(_ context.Context, w *model.Webinar) error {
	w.ID = uuid.New()
	r.webinars[w.ID] = w
	return nil
}

func (r *fakeWebinarRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Webinar, error) {
	w, ok := r.webinars[id]
	if !ok {
		return nil, appErrors.NotFound("webinar", id)
	}
	return w, nil
}

func (r *fakeWebinarRepo) List(_ context.Context, userID uuid.UUID, status string, page model.PageRequest) ([]*model.Webinar, int, error) {
	out := []*model.Webinar{}
	for _, w := range r.webinars {
		if w.UserID == userID && (status == "" || w.Status == status) {
			out = append(out, w)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (r *fakeWebinarRepo) Update(_ context.Context, w *model.Webinar) error {
	r.webinars[w.ID] = w
	return nil
}

func (r *fakeWebinarRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.webinars, id)
	return nil
}

func (r *fakeWebinarRepo) CreateChatMessage(_ context.Context, m *model.WebinarChatMessage) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.chat = append(r.chat, m)
	return nil
}

func (r *fakeWebinarRepo) ListChatMessages(_ context.Context, webinarID uuid.UUID, limit int) ([]*model.WebinarChatMessage, error) {
	out := []*model.WebinarChatMessage{}
	for _, m := range r.chat {
		if m.WebinarID == webinarID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeWebinarRepo) CreateInvitation(_ context.Context, inv *model.WebinarInvitation) (bool, error) {
	for _, existing := range r.invitations {
		if existing.WebinarID == inv.WebinarID && existing.ProspectID == inv.ProspectID {
			return false, nil
		}
	}
	inv.ID = uuid.New()
	inv.InvitedAt = time.Now()
	r.invitations[inv.ID] = inv
	return true, nil
}

func (r *fakeWebinarRepo) GetInvitation(_ context.Context, id uuid.UUID) (*model.WebinarInvitation, error) {
	inv, ok := r.invitations[id]
	if !ok {
		return nil, appErrors.NotFound("webinar invitation", id)
	}
	return inv, nil
}

func (r *fakeWebinarRepo) ListInvitations(_ context.Context, webinarID uuid.UUID) ([]*model.WebinarInvitation, error) {
	out := []*model.WebinarInvitation{}
	for _, inv := range r.invitations {
		if inv.WebinarID == webinarID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeWebinarRepo) UpdateInvitationStatus(_ context.Context, id uuid.UUID, status string) error {
	inv, ok := r.invitations[id]
	if !ok {
		return appErrors.NotFound("webinar invitation", id)
	}
	inv.Status = status
	now := time.Now()
	inv.RespondedAt = &now
	return nil
}

// ====================== Landing pages ======================

type fakePageRepo struct {
	pages map[uuid.UUID]*model.LandingPage
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{pages: map[uuid.UUID]*model.LandingPage{}}
}

func (r *fakePageRepo) slugTaken(p *model.LandingPage) bool {
	for _, other := range r.pages {
		if other.Slug == p.Slug && other.ID != p.ID {
			return true
		}
	}
	return false
}

func (r *fakePageRepo) Create(_ context.Context, p *model.LandingPage) error {
	if r.slugTaken(p) {
		return appErrors.Conflict("landing page %s already exists", p.Slug)
	}
	p.ID = uuid.New()
	r.pages[p.ID] = p
	return nil
}

func (r *fakePageRepo) GetByID(_ context.Context, id uuid.UUID) (*model.LandingPage, error) {
	p, ok := r.pages[id]
	if !ok {
		return nil, appErrors.NotFound("landing page", id)
	}
	return p, nil
}

func (r *fakePageRepo) GetBySlug(_ context.Context, slug string) (*model.LandingPage, error) {
	for _, p := range r.pages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, appErrors.NotFound("landing page", slug)
}

func (r *fakePageRepo) List(_ context.Context, userID uuid.UUID, page model.PageRequest) ([]*model.LandingPage, int, error) {
	out := []*model.LandingPage{}
	for _, p := range r.pages {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (r *fakePageRepo) Update(_ context.Context, p *model.LandingPage) error {
	if r.slugTaken(p) {
		return appErrors.Conflict("landing page %s already exists", p.Slug)
	}
	r.pages[p.ID] = p
	return nil
}

func (r *fakePageRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.pages, id)
	return nil
}

func (r *fakePageRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.pages[id].Views++
	return nil
}

func (r *fakePageRepo) IncrementSubmissions(_ context.Context, id uuid.UUID) error {
	r.pages[id].Submissions++
	return nil
}

// ====================== Email domains ======================

type fakeDomainRepo struct {
	domains map[uuid.UUID]*model.EmailDomain
}

func newFakeDomainRepo() *fakeDomainRepo {
	return &fakeDomainRepo{domains: map[uuid.UUID]*model.EmailDomain{}}
}

func (r *fakeDomainRepo) Create(_ context.Context, d *model.EmailDomain) error {
	for _, other := range r.domains {
		if other.UserID == d.UserID && other.Domain == d.Domain {
			return appErrors.Conflict("domain %s already exists", d.Domain)
		}
	}
	d.ID = uuid.New()
	r.domains[d.ID] = d
	return nil
}

func (r *fakeDomainRepo) GetByID(_ context.Context, id uuid.UUID) (*model.EmailDomain, error) {
	d, ok := r.domains[id]
	if !ok {
		return nil, appErrors.NotFound("domain", id)
	}
	return d, nil
}

func (r *fakeDomainRepo) List(_ context.Context, userID uuid.UUID) ([]*model.EmailDomain, error) {
	out := []*model.EmailDomain{}
	for _, d := range r.domains {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDomainRepo) Update(_ context.Context, d *model.EmailDomain) error {
	r.domains[d.ID] = d
	return nil
}

func (r *fakeDomainRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.domains, id)
	return nil
}

// ====================== Collaborators ======================

// recordingQueue keeps published send jobs instead of delivering them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.SendJob
	err  error
}

func (q *recordingQueue) Publish(_ context.Context, topic string, payload any) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := payload.(queue.SendJob); ok && topic == queue.TopicCampaignSends {
		q.jobs = append(q.jobs, job)
	}
	return nil
}

func (q *recordingQueue) Subscribe(string, queue.Handler) error { return nil }

// fakeProvider fails the first failures sends, then succeeds.
type fakeProvider struct {
	mu       sync.Mutex
	failures int
	sent     []provider.Message
	status   string
}

func (p *fakeProvider) Send(_ context.Context, msg provider.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return "", errors.New("provider unavailable")
	}
	p.sent = append(p.sent, msg)
	return "msg-" + uuid.NewString(), nil
}

func (p *fakeProvider) CreateDomain(_ context.Context, name string) (*provider.Domain, error) {
	return &provider.Domain{
		ID:     "dom-1",
		Name:   name,
		Status: "not_started",
		Records: []model.DNSRecord{
			{Type: "TXT", Name: "send." + name, Value: "v=spf1 include:example.net ~all", Status: "pending"},
		},
	}, nil
}

func (p *fakeProvider) GetDomain(_ context.Context, id string) (*provider.Domain, error) {
	return &provider.Domain{ID: id, Status: p.status}, nil
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type recordingPublisher struct {
	events []relay.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev relay.Event) error {
	p.events = append(p.events, ev)
	return nil
}

var (
	_ repository.ProspectRepositoryInterface      = (*fakeProspectRepo)(nil)
	_ repository.GroupRepositoryInterface         = (*fakeGroupRepo)(nil)
	_ repository.RoutingRuleRepositoryInterface   = (*fakeRuleRepo)(nil)
	_ repository.EmailTemplateRepositoryInterface = (*fakeTemplateRepo)(nil)
	_ repository.BrandingRepositoryInterface      = (*fakeBrandingRepo)(nil)
	_ repository.CampaignRepositoryInterface      = (*fakeCampaignRepo)(nil)
	_ repository.WorkflowRepositoryInterface      = (*fakeWorkflowRepo)(nil)
	_ repository.WebinarRepositoryInterface       = (*fakeWebinarRepo)(nil)
	_ repository.LandingPageRepositoryInterface   = (*fakePageRepo)(nil)
	_ repository.EmailDomainRepositoryInterface   = (*fakeDomainRepo)(nil)
	_ provider.EmailProvider                      = (*fakeProvider)(nil)
)
