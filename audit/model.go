// api/audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Entry is one audit record: who did what to whom, and whether it took
// effect. Sensitive actions always write one, success or failure.
type Entry struct {
	Timestamp     time.Time       `json:"timestamp"`
	ActorID       string          `json:"actor_id"`
	Action        string          `json:"action"`
	TargetType    string          `json:"target_type"` // "user", "app", "wallet", "session", "kyc"
	TargetID      string          `json:"target_id"`
	Success       bool            `json:"success"`
	Reason        string          `json:"reason,omitempty"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
