package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
	"github.com/gestorbiz/gestor-backend/internal/realtime/bus"
)

// ChangeNotifier publishes row-level change events to the realtime bus.
// Delivery is best-effort: a publish failure is logged and never propagated,
// the write it describes has already committed.
type ChangeNotifier interface {
	RowInserted(teamID uuid.UUID, entity string, rowID uuid.UUID, row any)
	RowUpdated(teamID uuid.UUID, entity string, rowID uuid.UUID, row any)
	RowDeleted(teamID uuid.UUID, entity string, rowID uuid.UUID)
	UserAvatarUpdated(userID uuid.UUID, row any)
}

type changeNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

func NewChangeNotifier(baseLog *logger.Logger, b bus.Bus) ChangeNotifier {
	return &changeNotifier{
		log: baseLog.With("service", "ChangeNotifier"),
		bus: b,
	}
}

func (n *changeNotifier) RowInserted(teamID uuid.UUID, entity string, rowID uuid.UUID, row any) {
	n.publish(realtime.TeamChannel(teamID), entity, realtime.EventInsert, rowID, row)
}

func (n *changeNotifier) RowUpdated(teamID uuid.UUID, entity string, rowID uuid.UUID, row any) {
	n.publish(realtime.TeamChannel(teamID), entity, realtime.EventUpdate, rowID, row)
}

func (n *changeNotifier) RowDeleted(teamID uuid.UUID, entity string, rowID uuid.UUID) {
	n.publish(realtime.TeamChannel(teamID), entity, realtime.EventDelete, rowID, nil)
}

func (n *changeNotifier) UserAvatarUpdated(userID uuid.UUID, row any) {
	n.publish(realtime.UserChannel(userID), "user", realtime.EventUpdate, userID, row)
}

func (n *changeNotifier) publish(channel, entity, event string, rowID uuid.UUID, row any) {
	if n == nil || n.bus == nil || rowID == uuid.Nil {
		return
	}
	var raw json.RawMessage
	if row != nil {
		b, err := json.Marshal(row)
		if err != nil {
			n.log.Warn("failed to serialize change row", "entity", entity, "row_id", rowID.String(), "error", err)
		} else {
			raw = b
		}
	}
	msg := realtime.ChangeEvent{
		Channel: channel,
		Entity:  entity,
		Event:   event,
		RowID:   rowID,
		Row:     raw,
	}
	if err := n.bus.Publish(context.Background(), msg); err != nil {
		n.log.Warn("failed to publish change event", "entity", entity, "event", event, "row_id", rowID.String(), "error", err)
	}
}
