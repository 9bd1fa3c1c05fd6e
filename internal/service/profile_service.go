package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
	SetStaff(ctx context.Context, id string, staff bool) error
	SetDeadfiled(ctx context.Context, id string, deadfiled bool) error
	SetCertificatePermissions(ctx context.Context, id string, canAttest, canSign bool) error
	AssignSupervisor(ctx context.Context, id string, supervisorID *string) error
	AssignStudyRoute(ctx context.Context, id string, routeID *string) error
}

type streakZeroer interface {
	Zero(ctx context.Context, studentID string) error
}

// ProfileService covers the administrative profile mutations: role changes,
// staff and deadfile toggles, certificate permissions and assignments.
type ProfileService struct {
	repo    profileRepository
	streaks streakZeroer
	logger  *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(repo profileRepository, streaks streakZeroer, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, streaks: streaks, logger: logger}
}

// Get returns one profile.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

// UpdateRole changes a profile's role. Only a super admin may grant or revoke
// admin-level roles.
func (s *ProfileService) UpdateRole(ctx context.Context, actor *models.JWTClaims, id string, role models.Role) error {
	switch role {
	case models.RoleStudent, models.RoleSupervisor, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if (role == models.RoleAdmin || role == models.RoleSuperAdmin) && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only a super admin may grant admin roles")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	s.logger.Sugar().Infow("role updated", "profile_id", id, "role", role, "by", actor.UserID)
	return nil
}

// SetStaff toggles the staff flag, which moves the profile between the public
// and staff honor roll partitions.
func (s *ProfileService) SetStaff(ctx context.Context, id string, staff bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetStaff(ctx, id, staff); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set staff flag")
	}
	return nil
}

// SetDeadfiled blocks or restores an account. Deadfiling zeroes the streak on
// the spot; the sweep and all honor roll reads already exclude the profile
// from then on.
func (s *ProfileService) SetDeadfiled(ctx context.Context, id string, deadfiled bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetDeadfiled(ctx, id, deadfiled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set deadfiled flag")
	}
	if deadfiled {
		if err := s.streaks.Zero(ctx, id); err != nil {
			s.logger.Sugar().Errorw("failed to zero streak on deadfile", "profile_id", id, "error", err)
		}
	}
	s.logger.Sugar().Infow("deadfiled flag updated", "profile_id", id, "deadfiled", deadfiled)
	return nil
}

// SetCertificatePermissions updates the attest and sign flags.
func (s *ProfileService) SetCertificatePermissions(ctx context.Context, id string, canAttest, canSign bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetCertificatePermissions(ctx, id, canAttest, canSign); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set certificate permissions")
	}
	return nil
}

// AssignSupervisor sets or clears the assigned supervisor.
func (s *ProfileService) AssignSupervisor(ctx context.Context, id string, supervisorID *string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if supervisorID != nil {
		supervisor, err := s.Get(ctx, *supervisorID)
		if err != nil {
			return err
		}
		if supervisor.Role != models.RoleSupervisor && supervisor.Role != models.RoleAdmin && supervisor.Role != models.RoleSuperAdmin {
			return appErrors.Clone(appErrors.ErrValidation, "assignee is not a supervisor")
		}
	}
	if err := s.repo.AssignSupervisor(ctx, id, supervisorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign supervisor")
	}
	return nil
}

// AssignStudyRoute sets or clears the assigned study route.
func (s *ProfileService) AssignStudyRoute(ctx context.Context, id string, routeID *string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.AssignStudyRoute(ctx, id, routeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign study route")
	}
	return nil
}
