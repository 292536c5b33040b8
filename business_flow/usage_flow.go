// Package businessflow contains the core business logic and use cases for account, quota, and content workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"github.com/elby-ai/elby-backend/app/dto"
	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/repository"
	"github.com/elby-ai/elby-backend/utils"
)

var quotaDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "elby_quota_denials_total",
		Help: "Total number of metered requests denied because the plan limit was reached",
	},
	[]string{"tool", "plan"},
)

// UsageFlow meters tool usage against plan limits over a rolling window
type UsageFlow interface {
	// CheckAndConsume charges one use of the tool to the user. It returns the
	// post-charge usage when allowed, or a quota error when the plan limit is
	// already reached. A window reset discovered during the check is persisted
	// even when the request is denied.
	CheckAndConsume(ctx context.Context, userID uint, tool models.ToolCategory, metadata *ClientMetadata) (*dto.UsageInfo, error)
	Summary(ctx context.Context, userID uint) (*dto.UsageSummaryResponse, error)
}

// UsageFlowImpl implements the usage metering business flow
type UsageFlowImpl struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewUsageFlow creates a new usage flow instance
func NewUsageFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) UsageFlow {
	return &UsageFlowImpl{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

func (u *UsageFlowImpl) CheckAndConsume(ctx context.Context, userID uint, tool models.ToolCategory, metadata *ClientMetadata) (*dto.UsageInfo, error) {
	if !tool.IsValid() {
		return nil, NewBusinessError("INVALID_TOOL", "Unknown tool category", ErrInvalidToolName)
	}

	var result dto.UsageInfo
	var denied bool
	var deniedUser *models.User

	err := repository.WithTransaction(ctx, u.db, func(txCtx context.Context) error {
		// The row lock serializes concurrent charges for the same account
		user, err := u.userRepo.ByIDForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		usage := user.Usage
		now := utils.UTCNow()

		// A fresh window starts when the previous one is older than the
		// rolling period, or was never initialized.
		if usage.WindowStart.IsZero() || now.Sub(usage.WindowStart) >= utils.UsageWindow {
			usage = models.Usage{WindowStart: now}
		}

		limits := models.LimitsForPlan(user.Plan)
		if !limits.Allows(tool, usage.Count(tool)) {
			// Persist the reset so a stale window does not survive a denied
			// request, then report the failure.
			if !usage.WindowStart.Equal(user.Usage.WindowStart) {
				if err := u.userRepo.UpdateUsage(txCtx, user.ID, usage); err != nil {
					return err
				}
			}
			denied = true
			deniedUser = user
			user.Usage = usage
			result = ToUsageInfo(*user, tool)
			return nil
		}

		switch tool {
		case models.ToolBlockchainTools:
			usage.BlockchainTools++
		default:
			usage.GeneralQueries++
		}

		if err := u.userRepo.UpdateUsage(txCtx, user.ID, usage); err != nil {
			return err
		}

		user.Usage = usage
		result = ToUsageInfo(*user, tool)
		return nil
	})

	if err != nil {
		return nil, NewBusinessError("USAGE_CHECK_FAILED", "Usage check failed", err)
	}

	if denied {
		quotaDenialsTotal.WithLabelValues(string(tool), deniedUser.Plan).Inc()

		msg := fmt.Sprintf("Daily limit reached for %s", tool.DisplayName())
		_ = u.createAuditLog(ctx, deniedUser, models.AuditActionQuotaDenied, msg, false, nil, metadata)

		return &result, NewBusinessErrorf("QUOTA_EXCEEDED",
			"You have reached your daily limit for %s. Please upgrade your plan for more access.",
			ErrQuotaExceeded, tool.DisplayName())
	}

	return &result, nil
}

func (u *UsageFlowImpl) Summary(ctx context.Context, userID uint) (*dto.UsageSummaryResponse, error) {
	user, err := u.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USAGE_SUMMARY_FAILED", "Failed to load usage", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	// An expired window reads as zero consumption even before any write
	// rolls it over.
	if !user.Usage.WindowStart.IsZero() && utils.UTCNow().Sub(user.Usage.WindowStart) >= utils.UsageWindow {
		user.Usage = models.Usage{WindowStart: user.Usage.WindowStart}
	}

	return &dto.UsageSummaryResponse{
		Plan:           user.Plan,
		GeneralQueries: ToUsageInfo(*user, models.ToolGeneralQueries),
		BlockchainTool: ToUsageInfo(*user, models.ToolBlockchainTools),
	}, nil
}

func (u *UsageFlowImpl) createAuditLog(ctx context.Context, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil {
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

	return u.auditRepo.Save(ctx, audit)
}
