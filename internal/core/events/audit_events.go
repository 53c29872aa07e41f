package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAuditEntry = "audit.entry"
)

// AuditEntryEvent carries one security-relevant action to the audit sink.
// ActorID is a pointer because entries must survive deletion of the actor's
// identity row.
type AuditEntryEvent struct {
	BaseEvent
	ActorID   *int64 `json:"actor_id,omitempty"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

func NewAuditEntryEvent(actorID *int64, action, detail, ipAddress string) *AuditEntryEvent {
	data := map[string]interface{}{
		"action": action,
	}
	if actorID != nil {
		data["actor_id"] = *actorID
	}
	if detail != "" {
		data["detail"] = detail
	}
	if ipAddress != "" {
		data["ip_address"] = ipAddress
	}

	return &AuditEntryEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAuditEntry,
			Timestamp: time.Now(),
			Data:      data,
		},
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		IPAddress: ipAddress,
	}
}
