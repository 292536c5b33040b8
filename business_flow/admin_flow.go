// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/repository"
	"github.com/elby-ai/elby-backend/utils"
)

// AdminFlow handles the admin console operations: user management with the
// role/plan coupling, account activation, reporting, and system health.
type AdminFlow interface {
	ListUsers(ctx context.Context, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error)
	UpdateUserRole(ctx context.Context, actorID, targetID uint, req *dto.UpdateUserRoleRequest, metadata *ClientMetadata) (*dto.UpdateUserResponse, error)
	UpdateUserStatus(ctx context.Context, actorID, targetID uint, req *dto.UpdateUserStatusRequest, metadata *ClientMetadata) (*dto.UpdateUserResponse, error)
	UpdateUserPlan(ctx context.Context, actorID, targetID uint, req *dto.UpdateUserPlanRequest, metadata *ClientMetadata) (*dto.UpdateUserResponse, error)
	ExportUsersReport(ctx context.Context) (filename string, data []byte, err error)
	SystemHealth(ctx context.Context) (*dto.SystemHealthResponse, error)
}

// HealthChecker reports the availability of one infrastructure component.
type HealthChecker func(ctx context.Context) error

// AdminFlowImpl implements the admin business flow
type AdminFlowImpl struct {
	userRepo    repository.UserRepository
	sessionRepo repository.UserSessionRepository
	auditRepo   repository.AuditLogRepository
	checkers    map[string]HealthChecker
	startedAt   time.Time
	db          *gorm.DB
}

// NewAdminFlow creates a new admin flow instance
func NewAdminFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	auditRepo repository.AuditLogRepository,
	checkers map[string]HealthChecker,
	db *gorm.DB,
) AdminFlow {
	return &AdminFlowImpl{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		checkers:    checkers,
		startedAt:   utils.UTCNow(),
		db:          db,
	}
}

func (a *AdminFlowImpl) ListUsers(ctx context.Context, req *dto.ListUsersRequest) (*dto.ListUsersResponse, error) {
	filter := models.UserFilter{}
	if req.Email != "" {
		filter.EmailContains = &req.Email
	}
	if req.Role != "" {
		filter.Role = &req.Role
	}
	if req.Plan != "" {
		filter.Plan = &req.Plan
	}
	filter.IsActive = req.IsActive

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	users, err := a.userRepo.List(ctx, filter, limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("USER_LIST_FAILED", "Failed to list users", err)
	}

	infos := make([]dto.AdminUserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, ToAdminUserInfo(*user))
	}

	return &dto.ListUsersResponse{Users: infos, Total: len(infos)}, nil
}

// UpdateUserRole changes a user's role. Role and plan are coupled: promoting
// to an admin role grants Full Access, demoting to a regular user drops the
// plan to Free. The last active super-admin can never be demoted.
func (a *AdminFlowImpl) UpdateUserRole(ctx context.Context, actorID, targetID uint, req *dto.UpdateUserRoleRequest, metadata *ClientMetadata) (*dto.UpdateUserResponse, error) {
	if !models.IsValidRole(req.Role) {
		return nil, NewBusinessError("INVALID_ROLE", "Invalid role", ErrInvalidRole)
	}
	if actorID == targetID {
		return nil, NewBusinessError("SELF_MODIFICATION", "Admins cannot change their own role", ErrSelfModification)
	}

	var user *models.User
	err := repository.WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		var err error
		user, err = a.userRepo.ByID(txCtx, targetID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if user.IsSuperAdmin() && req.Role != models.RoleSuperAdmin {
			count, err := a.userRepo.CountActiveSuperAdmins(txCtx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastSuperAdmin
			}
		}

		oldRole := user.Role
		user.Role = req.Role
		switch req.Role {
		case models.RoleSubAdmin, models.RoleSuperAdmin:
			user.Plan = models.PlanFullAccess
		default:
			if oldRole != models.RoleUser {
				user.Plan = models.PlanFree
			}
		}
		user.UpdatedAt = utils.UTCNow()

		return a.userRepo.Update(txCtx, user)
	})

	if err != nil {
		return nil, NewBusinessError("ROLE_UPDATE_FAILED", "Failed to update role", err)
	}

	msg := fmt.Sprintf("Role changed to %s by admin %d", user.Role, actorID)
	_ = a.createAuditLog(ctx, user, models.AuditActionRoleChanged, msg, true, nil, metadata)

	return &dto.UpdateUserResponse{User: ToAdminUserInfo(*user)}, nil
}

// UpdateUserStatus activates or deactivates an account. Deactivation revokes
// every live session so the change takes effect immediately. The last active
// super-admin can never be deactivated.
func (a *AdminFlowImpl) UpdateUserStatus(ctx context.Context, actorID, targetID uint, req *dto.UpdateUserStatusRequest, metadata *ClientMetadata) (*dto.UpdateUserResponse, error) {
	if req.IsActive == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "is_active is required", nil)
	}
	if actorID == targetID {
		return nil, NewBusinessError("SELF_MODIFICATION", "Admins cannot change their own status", ErrSelfModification)
	}

	activate := *req.IsActive

	var user *models.User
	err := repository.WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		var err error
		user, err = a.userRepo.ByID(txCtx, targetID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if !activate && user.IsSuperAdmin() && utils.IsTrue(user.IsActive) {
			count, err := a.userRepo.CountActiveSuperAdmins(txCtx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastSuperAdmin
			}
		}

		user.IsActive = utils.ToPtr(activate)
		user.UpdatedAt = utils.UTCNow()
		if err := a.userRepo.Update(txCtx, user); err != nil {
			return err
		}

		if !activate {
			return a.sessionRepo.RevokeAllForUser(txCtx, user.ID)
		}
		return nil
	})

	if err != nil {
		return nil, NewBusinessError("STATUS_UPDATE_FAILED", "Failed to update status", err)
	}

	action := models.AuditActionAccountActivated
	if !activate {
		action = models.AuditActionAccountDeactivated
	}
	msg := fmt.Sprintf("Status changed by admin %d", actorID)
	_ = a.createAuditLog(ctx, user, action, msg, true, nil, metadata)

	return &dto.UpdateUserResponse{User: ToAdminUserInfo(*user)}, nil
}

func (a *AdminFlowImpl) UpdateUserPlan(ctx context.Context, actorID, targetID uint, req *dto.UpdateUserPlanRequest, metadata *ClientMetadata) (*dto.UpdateUserResponse, error) {
	if !models.IsValidPlan(req.Plan) {
		return nil, NewBusinessError("INVALID_PLAN", "Invalid plan", ErrInvalidPlan)
	}

	var user *models.User
	err := repository.WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		var err error
		user, err = a.userRepo.ByID(txCtx, targetID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		user.Plan = req.Plan
		user.UpdatedAt = utils.UTCNow()
		return a.userRepo.Update(txCtx, user)
	})

	if err != nil {
		return nil, NewBusinessError("PLAN_UPDATE_FAILED", "Failed to update plan", err)
	}

	msg := fmt.Sprintf("Plan changed to %s by admin %d", user.Plan, actorID)
	_ = a.createAuditLog(ctx, user, models.AuditActionPlanChanged, msg, true, nil, metadata)

	return &dto.UpdateUserResponse{User: ToAdminUserInfo(*user)}, nil
}

// ExportUsersReport renders every account with its plan, role, and current
// usage counters into a spreadsheet for the admin console.
func (a *AdminFlowImpl) ExportUsersReport(ctx context.Context) (string, []byte, error) {
	users, err := a.userRepo.List(ctx, models.UserFilter{}, 10000, 0)
	if err != nil {
		return "", nil, NewBusinessError("USER_LIST_FAILED", "Failed to list users", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Users"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "uuid", "email", "role", "plan", "is_active", "two_factor_enabled", "general_queries_used", "blockchain_tools_used", "usage_window_start", "created_at", "last_login_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, user := range users {
		windowStart := ""
		if !user.Usage.WindowStart.IsZero() {
			windowStart = user.Usage.WindowStart.UTC().Format(time.RFC3339)
		}
		lastLogin := ""
		if user.LastLoginAt != nil {
			lastLogin = user.LastLoginAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatUint(uint64(user.ID), 10),
			user.UUID.String(),
			user.Email,
			user.Role,
			user.Plan,
			strconv.FormatBool(utils.IsTrue(user.IsActive)),
			strconv.FormatBool(utils.IsTrue(user.TwoFactorEnabled)),
			strconv.Itoa(user.Usage.GeneralQueries),
			strconv.Itoa(user.Usage.BlockchainTools),
			windowStart,
			user.CreatedAt.UTC().Format(time.RFC3339),
			lastLogin,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("users_report_%s.xlsx", utils.UTCNow().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

// SystemHealth probes each registered component and reports its status
func (a *AdminFlowImpl) SystemHealth(ctx context.Context) (*dto.SystemHealthResponse, error) {
	components := make(map[string]string, len(a.checkers))
	status := "healthy"

	for name, check := range a.checkers {
		if check == nil {
			components[name] = "unknown"
			continue
		}
		if err := check(ctx); err != nil {
			components[name] = fmt.Sprintf("error: %v", err)
			status = "degraded"
		} else {
			components[name] = "ok"
		}
	}

	return &dto.SystemHealthResponse{
		Status:     status,
		Components: components,
		Uptime:     utils.UTCNow().Sub(a.startedAt).Round(time.Second).String(),
		Timestamp:  utils.UTCNow().Format(time.RFC3339),
	}, nil
}

func (a *AdminFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil && user.ID != 0 {
		userID = &user.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	return a.auditRepo.Save(ctx, audit)
}
