package goSession

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignInSuccess       = "sign_in_success"
	auditEventSignInFailure       = "sign_in_failure"
	auditEventSignOut             = "sign_out"
	auditEventForcedSignOut       = "forced_sign_out"
	auditEventIdleExpiry          = "idle_expiry"
	auditEventProfileApplied      = "profile_applied"
	auditEventProfileFallback     = "profile_fallback"
	auditEventProfileSubscription = "profile_subscription_error"
	auditEventMetadataSyncFailure = "metadata_sync_failure"
)

// AuditErrorCode defines a public type used by goSession APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrProviderUnavailable AuditErrorCode = "provider_unavailable"
	auditErrSignInUnknown       AuditErrorCode = "sign_in_unknown"
	auditErrSignOutFailed       AuditErrorCode = "sign_out_failed"
	auditErrProfileNotFound     AuditErrorCode = "profile_not_found"
	auditErrProfileFetch        AuditErrorCode = "profile_fetch_failed"
	auditErrProfileSubscription AuditErrorCode = "profile_subscription_failed"
	auditErrMetadataSync        AuditErrorCode = "metadata_sync_failed"
	auditErrStorageAccess       AuditErrorCode = "storage_access_failed"
	auditErrRoleInvalid         AuditErrorCode = "role_invalid"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (s *Store) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	role Role,
	err error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		Role:       string(role),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	s.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrProviderUnavailable):
		return auditErrProviderUnavailable
	case errors.Is(err, ErrSignInUnknown):
		return auditErrSignInUnknown
	case errors.Is(err, ErrSignOutFailed):
		return auditErrSignOutFailed
	case errors.Is(err, ErrProfileNotFound):
		return auditErrProfileNotFound
	case errors.Is(err, ErrProfileFetch):
		return auditErrProfileFetch
	case errors.Is(err, ErrProfileSubscription):
		return auditErrProfileSubscription
	case errors.Is(err, ErrMetadataSync):
		return auditErrMetadataSync
	case errors.Is(err, ErrStorageAccess):
		return auditErrStorageAccess
	case errors.Is(err, ErrRoleInvalid):
		return auditErrRoleInvalid
	default:
		return auditErrInternal
	}
}
