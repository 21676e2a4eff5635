package identity

import (
	"context"
	"errors"
	"fmt"

	"portalwarga/internal/model"
	"portalwarga/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Subject is what the token middleware proves about the caller.
type Subject struct {
	ID   uuid.UUID
	Role string
}

// Actor is the authenticated profile acting on a request.
type Actor struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	Title      string     `json:"title"`
	Phone      string     `json:"phone"`
	ResidentID *uuid.UUID `json:"resident_id,omitempty"`
}

type subjectKey struct{}

func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

func SubjectFromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(Subject)
	return s, ok && s.ID != uuid.Nil
}

// Provider resolves the actor behind a request context.
type Provider interface {
	CurrentUser(ctx context.Context) (Actor, error)
}

type profileProvider struct {
	profiles repository.ProfileRepository
}

// NewProfileProvider resolves actors from the mirrored profiles table. The profile role wins
// over the token role when both are set.
func NewProfileProvider(profiles repository.ProfileRepository) Provider {
	return &profileProvider{profiles: profiles}
}

func (p *profileProvider) CurrentUser(ctx context.Context) (Actor, error) {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return Actor{}, ErrUnauthenticated
	}

	profile, err := p.profiles.FindByID(ctx, subject.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Actor{}, fmt.Errorf("%w: no profile for subject %s", ErrUnauthenticated, subject.ID)
		}
		return Actor{}, fmt.Errorf("failed to load profile: %w", err)
	}

	return actorFromProfile(profile, subject.Role), nil
}

func actorFromProfile(profile *model.Profile, tokenRole string) Actor {
	role := profile.Role
	if role == "" {
		role = tokenRole
	}
	return Actor{
		ID:         profile.ID,
		Name:       profile.FullName,
		Role:       role,
		Title:      profile.Title,
		Phone:      profile.Phone,
		ResidentID: profile.ResidentID,
	}
}

// Static always answers with the same actor. Used by tests and tooling.
type Static struct {
	Actor *Actor
}

func (s Static) CurrentUser(context.Context) (Actor, error) {
	if s.Actor == nil {
		return Actor{}, ErrUnauthenticated
	}
	return *s.Actor, nil
}
