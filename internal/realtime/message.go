package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ChangeEvent carries one row-level mutation to subscribed dashboard clients.
// Row holds the serialized row for insert/update; delete events carry only RowID.
type ChangeEvent struct {
	Channel string          `json:"channel"`
	Entity  string          `json:"entity"`
	Event   string          `json:"event"`
	RowID   uuid.UUID       `json:"row_id"`
	Row     json.RawMessage `json:"row,omitempty"`
}

const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

const (
	EntityTeam              = "team"
	EntityTeamMember        = "team_member"
	EntityTeamServiceType   = "team_service_type"
	EntityService           = "service"
	EntityServiceClient     = "service_client"
	EntityStore             = "store"
	EntityStoreContact      = "store_contact"
	EntityStoreAddress      = "store_address"
	EntityProduct           = "product"
	EntityProductIdentifier = "product_identifier"
)

// TeamChannel is the per-team feed every member of the team subscribes to.
func TeamChannel(teamID uuid.UUID) string {
	return "team:" + teamID.String()
}

// UserChannel carries account-level events such as avatar updates.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
