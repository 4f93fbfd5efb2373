package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/overleaf/overleaf-sub002/internal/config"
	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
	"github.com/overleaf/overleaf-sub002/internal/session"
)

// In-memory store fakes mirroring the pgx repositories' error semantics.

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]models.User
}

var _ UserStore = (*fakeUsers)(nil)

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; ok {
		return errs.ErrConflict
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return errs.ErrConflict
		}
	}
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, errs.ErrNotFound
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

type fakeProjects struct {
	mu   sync.Mutex
	byID map[string]models.Project
}

var _ ProjectStore = (*fakeProjects)(nil)

func newFakeProjects(projects ...models.Project) *fakeProjects {
	f := &fakeProjects{byID: map[string]models.Project{}}
	for _, p := range projects {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProjects) Create(_ context.Context, p models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; ok {
		return errs.ErrConflict
	}
	f.byID[p.ID] = p
	return nil
}

func (f *fakeProjects) GetByID(_ context.Context, id string) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Deleted() {
		return models.Project{}, errs.ErrNotFound
	}
	return p, nil
}

func (f *fakeProjects) FindByToken(_ context.Context, kind models.TokenKind, token models.AccessToken) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Deleted() {
			continue
		}
		switch kind {
		case models.TokenKindReadOnly:
			if p.Tokens.ReadOnly == token {
				return p, nil
			}
		case models.TokenKindReadAndWrite:
			if p.Tokens.ReadAndWrite == token {
				return p, nil
			}
		}
	}
	return models.Project{}, errs.ErrNotFound
}

func (f *fakeProjects) SetTokens(_ context.Context, id string, tokens models.Tokens) error {
	return f.update(id, func(p *models.Project) { p.Tokens = tokens })
}

func (f *fakeProjects) SetTokenAccess(_ context.Context, id string, enabled bool) error {
	return f.update(id, func(p *models.Project) { p.TokenAccessEnabled = enabled })
}

func (f *fakeProjects) SetPublicAccessLevel(_ context.Context, id string, level models.PublicAccessLevel) error {
	return f.update(id, func(p *models.Project) { p.PublicAccessLevel = level })
}

func (f *fakeProjects) SoftDelete(_ context.Context, id string) error {
	now := time.Now()
	return f.update(id, func(p *models.Project) { p.DeletedAt = &now })
}

func (f *fakeProjects) update(id string, apply func(*models.Project)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Deleted() {
		return errs.ErrNotFound
	}
	apply(&p)
	f.byID[id] = p
	return nil
}

type fakeMembers struct {
	mu   sync.Mutex
	rows map[string]models.Member
}

var _ MemberStore = (*fakeMembers)(nil)

func newFakeMembers(members ...models.Member) *fakeMembers {
	f := &fakeMembers{rows: map[string]models.Member{}}
	for _, m := range members {
		f.rows[m.ProjectID+"/"+m.UserID] = m
	}
	return f
}

func (f *fakeMembers) Upsert(_ context.Context, m models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[m.ProjectID+"/"+m.UserID] = m
	return nil
}

func (f *fakeMembers) Get(_ context.Context, projectID, userID string) (models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[projectID+"/"+userID]
	if !ok {
		return models.Member{}, errs.ErrNotFound
	}
	return m, nil
}

func (f *fakeMembers) ListByProject(_ context.Context, projectID string) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Member
	for _, m := range f.rows {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) Delete(_ context.Context, projectID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := projectID + "/" + userID
	if _, ok := f.rows[key]; !ok {
		return errs.ErrNotFound
	}
	delete(f.rows, key)
	return nil
}

type fakeGrants struct {
	mu   sync.Mutex
	rows map[string]models.TokenGrant
}

var _ GrantStore = (*fakeGrants)(nil)

func newFakeGrants() *fakeGrants {
	return &fakeGrants{rows: map[string]models.TokenGrant{}}
}

func (f *fakeGrants) Upsert(_ context.Context, g models.TokenGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[g.ProjectID+"/"+g.UserID] = g
	return nil
}

func (f *fakeGrants) Get(_ context.Context, projectID, userID string) (models.TokenGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[projectID+"/"+userID]
	if !ok {
		return models.TokenGrant{}, errs.ErrNotFound
	}
	return g, nil
}

type fakeInvites struct {
	mu   sync.Mutex
	byID map[string]models.Invite
}

var _ InviteStore = (*fakeInvites)(nil)

func newFakeInvites() *fakeInvites {
	return &fakeInvites{byID: map[string]models.Invite{}}
}

func (f *fakeInvites) Create(_ context.Context, inv models.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[inv.ID]; ok {
		return errs.ErrConflict
	}
	f.byID[inv.ID] = inv
	return nil
}

func (f *fakeInvites) GetByToken(_ context.Context, token string) (models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.byID {
		if inv.Token == token {
			return inv, nil
		}
	}
	return models.Invite{}, errs.ErrNotFound
}

func (f *fakeInvites) GetByID(_ context.Context, projectID, inviteID string) (models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[inviteID]
	if !ok || inv.ProjectID != projectID {
		return models.Invite{}, errs.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvites) ListByProject(_ context.Context, projectID string) ([]models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invite
	for _, inv := range f.byID {
		if inv.ProjectID == projectID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvites) Delete(_ context.Context, projectID, inviteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[inviteID]
	if !ok || inv.ProjectID != projectID {
		return errs.ErrNotFound
	}
	delete(f.byID, inviteID)
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

var _ AuditStore = (*memAudit)(nil)

func (a *memAudit) Insert(_ context.Context, e models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) ListByUser(_ context.Context, userID string, limit int) ([]models.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range a.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (a *memAudit) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var kept []models.AuditEntry
	var removed int64
	for _, e := range a.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	a.entries = kept
	return removed, nil
}

func (a *memAudit) byOperation(op models.AuditOperation) []models.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range a.entries {
		if e.Operation == op {
			out = append(out, e)
		}
	}
	return out
}

type fakeRegistry struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	sudo     map[string]bool
}

var _ session.Registry = (*fakeRegistry)(nil)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		sessions: map[string]models.Session{},
		sudo:     map[string]bool{},
	}
}

func (f *fakeRegistry) Register(_ context.Context, sess models.Session) error {
	if sess.SID == "" || sess.UserID == "" || sess.ValidationToken == "" {
		return errs.ErrInvalid
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.sessions[sess.SID]; ok && existing.ValidationToken != sess.ValidationToken {
		return errs.ErrConflict
	}
	f.sessions[sess.SID] = sess
	return nil
}

func (f *fakeRegistry) Get(_ context.Context, sid string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sid]
	if !ok {
		return models.Session{}, errs.ErrNotFound
	}
	return sess, nil
}

func (f *fakeRegistry) Validate(ctx context.Context, sid, presentedToken string) (models.Session, error) {
	sess, err := f.Get(ctx, sid)
	if err != nil {
		return models.Session{}, errs.ErrUnauthenticated
	}
	if presentedToken == "" || sess.ValidationToken != presentedToken {
		_ = f.Destroy(ctx, sid)
		return models.Session{}, errs.ErrUnauthenticated
	}
	return sess, nil
}

func (f *fakeRegistry) List(_ context.Context, userID string) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, sess := range f.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (f *fakeRegistry) Destroy(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sid)
	delete(f.sudo, sid)
	return nil
}

func (f *fakeRegistry) InvalidateOthers(_ context.Context, userID, exceptSID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cleared := 0
	for sid, sess := range f.sessions {
		if sess.UserID != userID || sid == exceptSID {
			continue
		}
		delete(f.sessions, sid)
		delete(f.sudo, sid)
		cleared++
	}
	return cleared, nil
}

func (f *fakeRegistry) SetAdminMode(_ context.Context, sid string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sid]
	if !ok {
		return errs.ErrNotFound
	}
	sess.AdminMode = enabled
	f.sessions[sid] = sess
	return nil
}

func (f *fakeRegistry) MarkSudo(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sudo[sid] = true
	return nil
}

func (f *fakeRegistry) IsSudo(_ context.Context, sid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sudo[sid], nil
}

func newTestAccessService(projects ProjectStore, members MemberStore, grants GrantStore, users UserStore, cfg config.AccessConfig) *AccessService {
	return NewAccessService(projects, members, grants, users, cfg, zerolog.Nop())
}
