package audit

import "time"

// Entry is one append-only line of the audit trail. Entries are never
// updated or deleted; ActorID is nullable so the trail outlives the
// actor's account.
type Entry struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ActorID   *int64    `json:"actor_id,omitempty" gorm:"column:actor_id"`
	Action    string    `json:"action" gorm:"column:action;not null"`
	Detail    string    `json:"detail,omitempty" gorm:"column:detail"`
	IPAddress string    `json:"ip_address,omitempty" gorm:"column:ip_address"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Entry) TableName() string {
	return "audit_logs"
}
