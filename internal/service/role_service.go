package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	// Resolver returns the cached permission resolver built from the full
	// role table; rebuilt after any role mutation or TTL expiry.
	Resolver(ctx context.Context) (*rbac.Resolver, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	db   *gorm.DB
	repo repository.RoleRepository

	mu          sync.Mutex
	resolver    *rbac.Resolver
	resolverExp time.Time
}

const resolverTTL = 5 * time.Minute

func NewRoleService(db *gorm.DB, repo repository.RoleRepository) RoleService {
	return &roleService{db: db, repo: repo}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}

		if len(req.Permissions) > 0 {
			permIDs := make([]uuid.UUID, 0, len(req.Permissions))
			for _, pid := range req.Permissions {
				parsed, parseErr := uuid.Parse(pid)
				if parseErr != nil {
					return fmt.Errorf("invalid permission id '%s': %w", pid, parseErr)
				}
				permIDs = append(permIDs, parsed)
			}
			var perms []model.Permission
			if err := tx.Where("id IN ?", permIDs).Find(&perms).Error; err != nil {
				return fmt.Errorf("failed to load permissions: %w", err)
			}
			if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateResolver()
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}
	if role.IsSystem {
		return nil, fmt.Errorf("system role '%s' cannot be renamed", role.Name)
	}

	role.Name = req.Name
	role.Description = req.Description
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.invalidateResolver()
	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.repo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", err)
	}
	if role.IsSystem {
		return fmt.Errorf("system role '%s' cannot be deleted", role.Name)
	}

	if err := s.repo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.invalidateResolver()
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	rid, err := uuid.Parse(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.repo.FindByID(ctx, rid)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", err)
	}

	permIDs := make([]uuid.UUID, 0, len(req.PermissionIDs))
	for _, pid := range req.PermissionIDs {
		parsed, parseErr := uuid.Parse(pid)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid permission id '%s': %w", pid, parseErr)
		}
		permIDs = append(permIDs, parsed)
	}

	var perms []model.Permission
	if err := s.db.WithContext(ctx).Where("id IN ?", permIDs).Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	if err := s.repo.ReplacePermissions(ctx, role, perms); err != nil {
		return nil, fmt.Errorf("failed to update role permissions: %w", err)
	}

	s.invalidateResolver()
	return s.GetRole(ctx, roleID)
}

func (s *roleService) Resolver(ctx context.Context) (*rbac.Resolver, error) {
	s.mu.Lock()
	if s.resolver != nil && time.Now().Before(s.resolverExp) {
		r := s.resolver
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load role table: %w", err)
	}
	resolver := rbac.NewResolver(roles)

	s.mu.Lock()
	s.resolver = resolver
	s.resolverExp = time.Now().Add(resolverTTL)
	s.mu.Unlock()

	return resolver, nil
}

func (s *roleService) invalidateResolver() {
	s.mu.Lock()
	s.resolver = nil
	s.mu.Unlock()
}

// defaultPermissions seeds the permission catalog. Codes are colon-delimited
// capabilities grouped by entity.
var defaultPermissions = []model.Permission{
	{Code: "requests:read", Name: "View certificate requests", Group: "requests"},
	{Code: "requests:create", Name: "Create certificate requests", Group: "requests"},
	{Code: "requests:assign", Name: "Assign requests to reviewers", Group: "requests"},
	{Code: "requests:review", Name: "Review certificate requests", Group: "requests"},
	{Code: "requests:approve", Name: "Approve certificate requests", Group: "requests"},
	{Code: "requests:reject", Name: "Reject certificate requests", Group: "requests"},
	{Code: "tasks:read", Name: "View QA tasks", Group: "tasks"},
	{Code: "tasks:create", Name: "Create QA tasks", Group: "tasks"},
	{Code: "tasks:complete", Name: "Complete QA tasks", Group: "tasks"},
	{Code: "requisitions:read", Name: "View requisitions", Group: "requisitions"},
	{Code: "requisitions:create", Name: "Create requisitions", Group: "requisitions"},
	{Code: "requisitions:approve", Name: "Approve requisitions", Group: "requisitions"},
	{Code: "requisitions:reject", Name: "Reject requisitions", Group: "requisitions"},
	{Code: "requisitions:fulfill", Name: "Fulfill requisitions", Group: "requisitions"},
	{Code: "invoices:read", Name: "View invoices", Group: "invoices"},
	{Code: "invoices:create", Name: "Create invoices", Group: "invoices"},
	{Code: "invoices:approve", Name: "Approve invoices", Group: "invoices"},
	{Code: "invoices:reject", Name: "Reject invoices", Group: "invoices"},
	{Code: "invoices:cancel", Name: "Cancel invoices", Group: "invoices"},
	{Code: "invoices:record_payment", Name: "Record invoice payments", Group: "invoices"},
	{Code: "expenses:read", Name: "View expenses", Group: "expenses"},
	{Code: "expenses:create", Name: "Submit expenses", Group: "expenses"},
	{Code: "statistics:read", Name: "View dashboards and leaderboards", Group: "statistics"},
	{Code: "audit:read", Name: "View the audit log", Group: "audit"},
	{Code: "users:manage", Name: "Manage users", Group: "users"},
	{Code: "roles:manage", Name: "Manage roles and permissions", Group: "roles"},
}

// defaultRoles maps seeded role names to the permission codes they grant.
var defaultRoles = map[string][]string{
	"admin": nil, // nil means all permissions
	"qa_lead": {
		"requests:read", "requests:assign", "requests:review", "requests:approve", "requests:reject",
		"tasks:read", "tasks:create", "tasks:complete", "statistics:read", "audit:read",
	},
	"qa_tester": {
		"requests:read", "requests:create", "tasks:read", "tasks:complete", "expenses:create", "expenses:read",
	},
	"finance": {
		"requisitions:read", "requisitions:approve", "requisitions:reject", "requisitions:fulfill",
		"invoices:read", "invoices:create", "invoices:approve", "invoices:reject", "invoices:cancel",
		"invoices:record_payment", "expenses:read", "statistics:read",
	},
	"requester": {
		"requests:read", "requests:create", "requisitions:read", "requisitions:create", "expenses:create",
	},
}

// SeedDefaultRolesAndPermissions is idempotent: it inserts any missing
// permissions and system roles, leaving existing rows untouched.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byCode := make(map[string]model.Permission, len(defaultPermissions))
		for _, p := range defaultPermissions {
			var existing model.Permission
			err := tx.Where("code = ?", p.Code).First(&existing).Error
			if err == gorm.ErrRecordNotFound {
				existing = p
				if err := tx.Create(&existing).Error; err != nil {
					return fmt.Errorf("failed to seed permission %s: %w", p.Code, err)
				}
			} else if err != nil {
				return err
			}
			byCode[existing.Code] = existing
		}

		for name, codes := range defaultRoles {
			var role model.Role
			err := tx.Where("name = ?", name).First(&role).Error
			if err == gorm.ErrRecordNotFound {
				role = model.Role{Name: name, IsSystem: true}
				if err := tx.Create(&role).Error; err != nil {
					return fmt.Errorf("failed to seed role %s: %w", name, err)
				}

				var perms []model.Permission
				if codes == nil {
					for _, p := range byCode {
						perms = append(perms, p)
					}
				} else {
					for _, code := range codes {
						perms = append(perms, byCode[code])
					}
				}
				if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
					return fmt.Errorf("failed to seed role permissions for %s: %w", name, err)
				}
			} else if err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
