package websocket

import (
	"context"
	"net/http"
	"strconv"

	"printhub/internal/domain"
	"printhub/internal/services"
	"printhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced upstream
	},
}

type clientMessage struct {
	Type    string               `json:"type"`
	ID      int64                `json:"id,omitempty"`
	Machine int                  `json:"machine,omitempty"`
	Status  string               `json:"status,omitempty"`
	Note    string               `json:"note,omitempty"`
	Program *domain.ProgramInput `json:"program,omitempty"`
}

type Handler struct {
	programs *services.ProgramService
	sync     *services.SyncService
	registry domain.ConnectionRegistry
	log      logger.Logger
}

func NewHandler(programs *services.ProgramService, sync *services.SyncService,
	registry domain.ConnectionRegistry, log logger.Logger) *Handler {
	return &Handler{
		programs: programs,
		sync:     sync,
		registry: registry,
		log:      log,
	}
}

// HandleConnection serves /ws: the connection joins the global group and
// receives every program event.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, 0)
}

// HandleMachineConnection serves /ws/machines/{machine}: the connection
// starts out subscribed to that machine only.
func (h *Handler) HandleMachineConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	machine, err := strconv.Atoi(vars["machine"])
	if err != nil || machine <= 0 {
		http.Error(w, "invalid machine number", http.StatusBadRequest)
		return
	}
	h.accept(w, r, machine)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request, machine int) {
	// Identity is resolved by the transport layer; the hub only requires
	// that it is present.
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, uuid.NewString(), userID, h.log)

	h.registry.Register(wsConn)
	if machine > 0 {
		h.registry.Join(wsConn.ID(), domain.MachineGroup(machine))
	} else {
		h.registry.Join(wsConn.ID(), domain.GlobalGroup)
	}

	go h.readLoop(conn, wsConn)
}

func (h *Handler) readLoop(conn *websocket.Conn, wsConn *WebSocketConnection) {
	defer func() {
		h.registry.Unregister(wsConn.ID())
		wsConn.Close()
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("Read failed, dropping connection",
				"connection_id", wsConn.ID(), "error", err)
			return
		}

		h.dispatch(wsConn, &msg)
	}
}

func (h *Handler) dispatch(conn *WebSocketConnection, msg *clientMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "create_program":
		if msg.Program == nil {
			h.sendError(conn, &domain.ValidationError{Field: "program", Reason: "missing"})
			return
		}
		program, err := h.programs.Create(ctx, msg.Program, conn.UserID())
		h.reply(conn, program, err)

	case "update_program":
		if msg.Program == nil {
			h.sendError(conn, &domain.ValidationError{Field: "program", Reason: "missing"})
			return
		}
		program, err := h.programs.Update(ctx, msg.ID, msg.Program, conn.UserID())
		h.reply(conn, program, err)

	case "change_status":
		program, err := h.programs.ChangeStatus(ctx, msg.ID,
			domain.ProgramStatus(msg.Status), msg.Note, conn.UserID())
		h.reply(conn, program, err)

	case "delete_program":
		if err := h.programs.Delete(ctx, msg.ID, conn.UserID()); err != nil {
			h.sendError(conn, err)
			return
		}
		conn.Send(&Envelope{Event: "ack", Data: map[string]int64{"id": msg.ID}})

	case "join_machine":
		if msg.Machine > 0 {
			h.registry.Join(conn.ID(), domain.MachineGroup(msg.Machine))
		}

	case "leave_machine":
		if msg.Machine > 0 {
			h.registry.Leave(conn.ID(), domain.MachineGroup(msg.Machine))
		}

	case "full_sync":
		snapshot, err := h.sync.FullSync(ctx)
		if err != nil {
			h.sendError(conn, err)
			return
		}
		conn.Send(&Envelope{Event: "sync:complete", Data: snapshot})

	case "machine_programs":
		programs, err := h.sync.MachineSync(ctx, msg.Machine)
		if err != nil {
			h.sendError(conn, err)
			return
		}
		conn.Send(&Envelope{Event: "machine:programs", Data: map[string]interface{}{
			"machine":  msg.Machine,
			"programs": programs,
		}})

	case "ping":
		conn.Send(&Envelope{Event: "pong"})

	default:
		h.sendError(conn, &domain.ValidationError{Field: "type", Reason: "unknown message type"})
	}
}

// reply sends the committed record back to the initiating connection. The
// broadcast reaches it separately through its groups.
func (h *Handler) reply(conn *WebSocketConnection, program *domain.Program, err error) {
	if err != nil {
		h.sendError(conn, err)
		return
	}
	conn.Send(&Envelope{Event: "ack", Data: program})
}

func (h *Handler) sendError(conn *WebSocketConnection, err error) {
	sendErr := conn.Send(&Envelope{Event: "error", Data: map[string]string{
		"code":    domain.ErrorCode(err),
		"message": err.Error(),
	}})
	if sendErr != nil {
		h.log.Warn("Failed to send error reply",
			"connection_id", conn.ID(), "error", sendErr)
	}
}
