package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencursus/cursus-api/internal/models"
)

// ProfileRepository handles profile persistence.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, email, password_hash, full_name, role, is_staff, deadfiled,
        organization, supervisor_id, study_route_id, can_attest, can_sign, last_login, created_at, updated_at`

// FindByID returns the profile with the given id.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE id = $1", profileColumns)
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByEmail returns the profile with the given email.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE email = $1", profileColumns)
	if err := r.db.GetContext(ctx, &profile, query, email); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const query = `INSERT INTO profiles (id, email, password_hash, full_name, role, is_staff, deadfiled,
                organization, supervisor_id, study_route_id, can_attest, can_sign, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :full_name, :role, :is_staff, :deadfiled,
                :organization, :supervisor_id, :study_route_id, :can_attest, :can_sign, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// UpdateRole changes the profile's role.
func (r *ProfileRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	const query = `UPDATE profiles SET role = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("update profile role: %w", err)
	}
	return nil
}

// SetStaff toggles the staff flag.
func (r *ProfileRepository) SetStaff(ctx context.Context, id string, staff bool) error {
	const query = `UPDATE profiles SET is_staff = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, staff, time.Now().UTC()); err != nil {
		return fmt.Errorf("set profile staff flag: %w", err)
	}
	return nil
}

// SetDeadfiled toggles the deadfiled flag.
func (r *ProfileRepository) SetDeadfiled(ctx context.Context, id string, deadfiled bool) error {
	const query = `UPDATE profiles SET deadfiled = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, deadfiled, time.Now().UTC()); err != nil {
		return fmt.Errorf("set profile deadfiled flag: %w", err)
	}
	return nil
}

// SetCertificatePermissions updates the attest/sign permission flags.
func (r *ProfileRepository) SetCertificatePermissions(ctx context.Context, id string, canAttest, canSign bool) error {
	const query = `UPDATE profiles SET can_attest = $2, can_sign = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, canAttest, canSign, time.Now().UTC()); err != nil {
		return fmt.Errorf("set certificate permissions: %w", err)
	}
	return nil
}

// AssignSupervisor sets or clears the assigned supervisor.
func (r *ProfileRepository) AssignSupervisor(ctx context.Context, id string, supervisorID *string) error {
	const query = `UPDATE profiles SET supervisor_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, supervisorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign supervisor: %w", err)
	}
	return nil
}

// AssignStudyRoute sets or clears the assigned study route.
func (r *ProfileRepository) AssignStudyRoute(ctx context.Context, id string, routeID *string) error {
	const query = `UPDATE profiles SET study_route_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, routeID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign study route: %w", err)
	}
	return nil
}

// UpdateLastLogin records the latest successful login.
func (r *ProfileRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE profiles SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
