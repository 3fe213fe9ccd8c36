package websocket

import (
	"encoding/json"

	"printhub/internal/domain"
	"printhub/pkg/logger"
)

// Envelope is the frame every server-pushed message travels in.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// BroadcastRouter fans a committed domain event out to the global group
// and, when the event carries a machine number, to that machine's group.
// Delivery is best-effort: a failed send is logged and the rest of the
// recipients still get the event.
type BroadcastRouter struct {
	registry domain.ConnectionRegistry
	log      logger.Logger
}

func NewBroadcastRouter(registry domain.ConnectionRegistry, log logger.Logger) *BroadcastRouter {
	return &BroadcastRouter{
		registry: registry,
		log:      log,
	}
}

func (r *BroadcastRouter) Publish(event *domain.ProgramEvent) {
	data, err := json.Marshal(&Envelope{
		Event: string(event.Kind),
		Data:  event,
	})
	if err != nil {
		r.log.Error("Failed to encode event", "kind", event.Kind, "error", err)
		return
	}

	// A connection in both the global and the machine group gets the
	// event once.
	seen := make(map[string]struct{})
	recipients := r.registry.MembersOf(domain.GlobalGroup)
	if event.MachineNumber > 0 {
		recipients = append(recipients, r.registry.MembersOf(domain.MachineGroup(event.MachineNumber))...)
	}

	delivered := 0
	for _, conn := range recipients {
		if _, dup := seen[conn.ID()]; dup {
			continue
		}
		seen[conn.ID()] = struct{}{}

		if err := conn.SendRaw(data); err != nil {
			r.log.Warn("Failed to deliver event", "connection_id", conn.ID(),
				"kind", event.Kind, "program_id", event.ProgramID, "error", err)
			continue
		}
		delivered++
	}

	r.log.Debug("Event published", "kind", event.Kind, "program_id", event.ProgramID,
		"machine", event.MachineNumber, "delivered", delivered)
}
