package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/wellness-api/internal/email"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/audit"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/security"
	"github.com/jwalitptl/wellness-api/pkg/validator"
)

const (
	defaultInviteTTL = 7 * 24 * time.Hour
	defaultCacheTTL  = 30 * time.Second
)

type UserServicer interface {
	Me(ctx context.Context) (*model.User, error)
	List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.User], error)
	Invite(ctx context.Context, req *model.InviteUserRequest) (*model.InvitationSummary, error)
	AcceptInvite(ctx context.Context, req *model.AcceptInviteRequest) (*model.User, error)
	Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, id string) error
	Resolve(ctx context.Context, externalID, email string) (*model.User, error)
}

type Config struct {
	InviteTTL time.Duration
	CacheTTL  time.Duration
}

type Service struct {
	repo     repository.UserRepository
	emailSvc email.Service
	hasher   security.TokenHasher
	auditor  audit.Recorder
	events   event.Emitter
	cache    *cache.Cache
	cfg      Config
	now      func() time.Time
}

func NewService(
	repo repository.UserRepository,
	emailSvc email.Service,
	hasher security.TokenHasher,
	auditor audit.Recorder,
	events event.Emitter,
	cfg Config,
) *Service {
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = defaultInviteTTL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Service{
		repo:     repo,
		emailSvc: emailSvc,
		hasher:   hasher,
		auditor:  auditor,
		events:   events,
		cache:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve finds the stored user behind a verified token, first by subject
// and then by email for users that have no subject yet. Results are cached briefly. A nil user with no error
// means the caller is unknown.
func (s *Service) Resolve(ctx context.Context, externalID, email string) (*model.User, error) {
	key := externalID + "|" + email
	if v, ok := s.cache.Get(key); ok {
		u, _ := v.(*model.User)
		return u, nil
	}

	u, err := s.repo.GetByExternalID(ctx, externalID)
	if apperrors.IsNotFound(err) && email != "" {
		u, err = s.repo.GetByEmail(ctx, email)
		// An email match only counts for users not yet bound to a subject.
		if err == nil && u.ExternalID != "" {
			u, err = nil, nil
		}
	}
	if apperrors.IsNotFound(err) {
		u, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	s.cache.Set(key, u, cache.DefaultExpiration)
	return u, nil
}

func (s *Service) forget() {
	s.cache.Flush()
}

func (s *Service) Me(ctx context.Context) (*model.User, error) {
	actor, ok := model.ActorFromContext(ctx)
	if !ok {
		return nil, apperrors.Unauthorized(nil)
	}
	if actor.UserID.IsZero() {
		return nil, apperrors.NotFound("user", nil)
	}
	u, err := s.repo.Get(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.User], error) {
	if opts.Role != "" {
		role, ok := model.NormalizeRole(opts.Role)
		if !ok {
			return nil, apperrors.Validation("role must be one of admin, provider, staff")
		}
		opts.Role = string(role)
	}
	page, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// Invite creates a pending user and emails a one-time acceptance token. A
// mail failure does not undo the invitation.
func (s *Service) Invite(ctx context.Context, req *model.InviteUserRequest) (*model.InvitationSummary, error) {
	role, ok := model.NormalizeRole(req.Role)
	if !ok {
		return nil, apperrors.Validation("role must be one of admin, provider, staff")
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.GetByEmail(ctx, addr); err == nil {
		return nil, apperrors.Conflict("a user with this email already exists", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	token, hash, err := s.hasher.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}

	now := s.now()
	inv := &model.Invitation{
		TokenHash: hash,
		SentAt:    now,
		ExpiresAt: now.Add(s.cfg.InviteTTL),
	}
	inviter := ""
	if actor, ok := model.ActorFromContext(ctx); ok {
		inv.InvitedBy = actor.UserID
		inviter = actor.Name
	}

	u := &model.User{
		Email:      addr,
		Name:       strings.TrimSpace(req.Name),
		Role:       role,
		Status:     model.UserStatusPending,
		Invitation: inv,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.forget()

	summary := &model.InvitationSummary{
		UserID:    u.ID.Hex(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		ExpiresAt: inv.ExpiresAt,
		EmailSent: true,
	}

	err = s.emailSvc.SendInvitation(ctx, email.Invitation{
		To:        u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		InvitedBy: inviter,
		Token:     token,
		ExpiresAt: inv.ExpiresAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", summary.UserID).Msg("invitation email not sent")
		summary.EmailSent = false
	}

	s.auditor.Record(ctx, model.AuditActionInvite, model.AuditEntityUser, summary.UserID, map[string]interface{}{
		"email": u.Email,
		"role":  u.Role,
	})
	if err := s.events.Emit(ctx, model.EventUserInvited, summary.UserID, summary); err != nil {
		log.Warn().Err(err).Str("user_id", summary.UserID).Msg("failed to emit invite event")
	}
	return summary, nil
}

// AcceptInvite activates the pending user whose email matches the caller
// and binds it to the caller's identity.
func (s *Service) AcceptInvite(ctx context.Context, req *model.AcceptInviteRequest) (*model.User, error) {
	actor, ok := model.ActorFromContext(ctx)
	if !ok || actor.Email == "" {
		return nil, apperrors.Unauthorized(nil)
	}

	u, err := s.repo.GetByEmail(ctx, actor.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("invitation", nil)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u.Status != model.UserStatusPending || u.Invitation == nil || u.Invitation.AcceptedAt != nil {
		return nil, apperrors.Validation("invitation has already been accepted")
	}

	now := s.now()
	if now.After(u.Invitation.ExpiresAt) {
		return nil, apperrors.Validation("invitation has expired")
	}
	if err := s.hasher.Compare(u.Invitation.TokenHash, req.Token); err != nil {
		return nil, apperrors.Validation("invitation token is invalid")
	}

	u.Status = model.UserStatusActive
	u.ExternalID = actor.ExternalID
	u.Invitation.AcceptedAt = &now
	u.Invitation.TokenHash = ""
	u.LastLoginAt = &now
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}
	s.forget()

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityUser, u.ID.Hex(), map[string]interface{}{"status": u.Status})
	if err := s.events.Emit(ctx, model.EventUserActivated, u.ID.Hex(), map[string]interface{}{
		"id":    u.ID.Hex(),
		"email": u.Email,
		"role":  u.Role,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.Hex()).Msg("failed to emit activation event")
	}
	return u, nil
}

func (s *Service) Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	oid, err := model.ParseID(id, "user")
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	role, status := u.Role, u.Status
	if req.Role != nil {
		r, ok := model.NormalizeRole(*req.Role)
		if !ok {
			return nil, apperrors.Validation("role must be one of admin, provider, staff")
		}
		role = r
	}
	if req.Status != nil {
		st := model.UserStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.Valid() {
			return nil, apperrors.Validation("status must be one of active, pending, inactive")
		}
		status = st
	}
	if err := s.keepAnAdmin(ctx, u, role, status); err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	u.Role, u.Status = role, status
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.forget()

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityUser, id, req)
	return u, nil
}

// EnsureAdmin makes the user with req.Email an active admin, creating the
// account when it does not exist. The account binds to a token subject on
// first sign-in by email. created reports whether a new user was stored.
func (s *Service) EnsureAdmin(ctx context.Context, req *model.BootstrapAdminRequest) (u *model.User, created bool, err error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if err := validator.New().Validate(&model.BootstrapAdminRequest{Email: addr, Name: name}); err != nil {
		return nil, false, apperrors.Validation("%v", err)
	}

	u, err = s.repo.GetByEmail(ctx, addr)
	switch {
	case apperrors.IsNotFound(err):
		if name == "" {
			name = addr
		}
		u = &model.User{
			Email:  addr,
			Name:   name,
			Role:   model.RoleAdmin,
			Status: model.UserStatusActive,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, false, fmt.Errorf("failed to create admin: %w", err)
		}
		created = true
		s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityUser, u.ID.Hex(), map[string]interface{}{"role": u.Role})
	case err != nil:
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	default:
		if u.Role == model.RoleAdmin && u.Status == model.UserStatusActive && (name == "" || name == u.Name) {
			return u, false, nil
		}
		u.Role = model.RoleAdmin
		u.Status = model.UserStatusActive
		if name != "" {
			u.Name = name
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, false, fmt.Errorf("failed to promote admin: %w", err)
		}
		s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityUser, u.ID.Hex(), map[string]interface{}{"role": u.Role, "status": u.Status})
	}
	s.forget()

	log.Info().Str("user_id", u.ID.Hex()).Str("email", u.Email).Bool("created", created).Msg("admin ensured")
	return u, created, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := model.ParseID(id, "user")
	if err != nil {
		return err
	}
	if actor, ok := model.ActorFromContext(ctx); ok && actor.UserID == oid {
		return apperrors.Validation("you cannot delete your own account")
	}

	u, err := s.repo.Get(ctx, oid)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.keepAnAdmin(ctx, u, "", model.UserStatusInactive); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.forget()

	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityUser, id, nil)
	return nil
}

// keepAnAdmin rejects a change that would leave no active admin.
func (s *Service) keepAnAdmin(ctx context.Context, u *model.User, role model.Role, status model.UserStatus) error {
	if u.Role != model.RoleAdmin || u.Status != model.UserStatusActive {
		return nil
	}
	if role == model.RoleAdmin && status == model.UserStatusActive {
		return nil
	}
	n, err := s.repo.CountByRole(ctx, model.RoleAdmin, model.UserStatusActive)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if n <= 1 {
		return apperrors.Validation("cannot remove the last active admin")
	}
	return nil
}
