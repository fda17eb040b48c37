package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

// Guard turns an authenticated principal into an Actor. It runs once per
// request at the transport boundary.
type Guard struct {
	store port.Store
	opts  options
}

func NewGuard(store port.Store, opts ...Option) *Guard {
	return &Guard{store: store, opts: newOptions(opts)}
}

func (g *Guard) ResolveActor(ctx context.Context, principal string) (domain.Actor, error) {
	actor, ok, err := g.ResolveActorSoft(ctx, principal)
	if err != nil {
		return domain.Actor{}, err
	}
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: profile not found", domain.ErrAuthenticationRequired)
	}
	return actor, nil
}

// ResolveActorSoft reports ok=false instead of failing when the principal
// has no profile. An empty principal is still an error.
func (g *Guard) ResolveActorSoft(ctx context.Context, principal string) (domain.Actor, bool, error) {
	if strings.TrimSpace(principal) == "" {
		return domain.Actor{}, false, domain.ErrAuthenticationRequired
	}

	var profile *domain.Profile
	err := g.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		profile, err = repo.GetProfileByUserID(ctx, principal)
		return err
	})
	if err != nil {
		return domain.Actor{}, false, fmt.Errorf("resolve actor: %w", err)
	}
	if profile == nil {
		return domain.Actor{}, false, nil
	}
	return profile.Actor(), true, nil
}

// Authorize passes admins unconditionally and otherwise requires actor.Role
// to be one of allowed.
func Authorize(actor domain.Actor, action string, allowed ...domain.Role) error {
	if actor.IsAdmin() {
		return nil
	}
	for _, r := range allowed {
		if actor.Role == r {
			return nil
		}
	}
	return &domain.AuthorizationError{Action: action, Allowed: allowed}
}

type RegisterProfileInput struct {
	UserID string
	Email  string
	Name   string
	Role   domain.Role
}

// RegisterProfile binds a principal to a role. Admin only.
func (g *Guard) RegisterProfile(ctx context.Context, actor domain.Actor, in RegisterProfileInput) (domain.Profile, error) {
	if err := Authorize(actor, "register user profiles", domain.RoleAdmin); err != nil {
		return domain.Profile{}, err
	}
	return g.createProfile(ctx, in)
}

// Bootstrap creates an admin profile for principal unless one already exists.
func (g *Guard) Bootstrap(ctx context.Context, principal, name string) error {
	_, ok, err := g.ResolveActorSoft(ctx, principal)
	if err != nil || ok {
		return err
	}
	_, err = g.createProfile(ctx, RegisterProfileInput{UserID: principal, Name: name, Role: domain.RoleAdmin})
	if err == nil {
		g.opts.logger.WithField("user_id", principal).Info("bootstrap admin profile created")
	}
	return err
}

func (g *Guard) createProfile(ctx context.Context, in RegisterProfileInput) (domain.Profile, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return domain.Profile{}, domain.InvalidInput("user id is required")
	}
	if !in.Role.Valid() {
		return domain.Profile{}, domain.InvalidInput("unknown role %q", in.Role)
	}

	p := domain.Profile{
		ID:        g.opts.newID(),
		UserID:    in.UserID,
		Email:     in.Email,
		Name:      strings.TrimSpace(in.Name),
		Role:      in.Role,
		CreatedAt: g.opts.clock(),
	}
	err := g.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		return repo.CreateProfile(ctx, p)
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}
