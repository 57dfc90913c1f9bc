package audit

import "time"

// Event is emitted from domain logic to capture regulatory actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time  `json:"timestamp"`
	Authority     string     `json:"authority,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	Action        AuditEvent `json:"action"`
	Source        string    `json:"source,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	Amount        uint64    `json:"amount,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Justification string    `json:"justification,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventIdentityRegistered    AuditEvent = "identity_registered"
	EventIdentityStatusChanged AuditEvent = "identity_status_changed"
	EventAuthorityRegistered   AuditEvent = "authority_registered"
	EventAuthorityUpdated      AuditEvent = "authority_updated"
	EventAuthorityDeactivated  AuditEvent = "authority_deactivated"
	EventAlertCreated          AuditEvent = "alert_created"
	EventAlertUpdated          AuditEvent = "alert_updated"
	EventAlertActionTaken      AuditEvent = "alert_action_taken"
	EventBlacklistAdded        AuditEvent = "blacklist_added"
	EventBlacklistUpdated      AuditEvent = "blacklist_updated"
	EventBlacklistRemoved      AuditEvent = "blacklist_removed"
	EventKycRevoked            AuditEvent = "kyc_revoked_and_blacklisted"
	EventAccountFrozen         AuditEvent = "account_frozen"
	EventAccountThawed         AuditEvent = "account_thawed"
	EventFundsSeized           AuditEvent = "funds_seized"
	EventReserveUpdated        AuditEvent = "reserve_attestation_updated"
)
