package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"foodyar/backend/internal/domain"
)

func isStaffRole(role string) bool {
	return role == domain.RoleManager || role == domain.RoleCashier || role == domain.RoleChef
}

// ValidatePIN accepts 4 to 8 digits.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return invalidf("pin must be 4 to 8 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return invalidf("pin must be digits only")
		}
	}
	return nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.StaffUser, error) {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StaffUser, 0, len(users))
	for _, user := range users {
		out = append(out, domain.StaffUser{
			Username:  user.Username,
			Name:      user.Name,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.StaffUser, error) {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return domain.StaffUser{}, err
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 || strings.ContainsAny(username, " \t\r\n") {
		return domain.StaffUser{}, invalidf("username must be at least 3 characters without spaces")
	}
	if !isStaffRole(req.Role) {
		return domain.StaffUser{}, invalidf("unknown role %q", req.Role)
	}
	if err := ValidatePIN(req.PIN); err != nil {
		return domain.StaffUser{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return domain.StaffUser{}, fmt.Errorf("hash pin: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}
	now := s.now()
	if err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Name:      name,
		PIN:       string(hash),
		Role:      req.Role,
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return domain.StaffUser{}, err
	}
	s.logAudit(ctx, domain.AuditCreate, domain.EntityUser, username, "role="+req.Role)
	return domain.StaffUser{Username: username, Name: name, Role: req.Role, Active: true, CreatedAt: now}, nil
}

func (s *Service) SetStaffActive(ctx context.Context, username string, active bool) error {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if actor, _ := ActorFromContext(ctx); actor.Username == username && !active {
		return invalidf("cannot deactivate your own account")
	}
	if err := s.repo.SetUserActive(ctx, username, active); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityUser, username, fmt.Sprintf("active=%t", active))
	return nil
}

func (s *Service) ResetStaffPIN(ctx context.Context, username string, pin string) error {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return err
	}
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if err := s.repo.UpdateUserPIN(ctx, username, string(hash)); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityUser, username, "pin reset")
	return nil
}
