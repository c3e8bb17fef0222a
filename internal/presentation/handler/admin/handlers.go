package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
	"github.com/kcstrada/mes-realtime-gateway/internal/gateway"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/json"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/validate"
)

const maxAuditEntries = 200

var (
	validateEvent = validate.Field("event",
		validate.Required(),
		validate.LengthBetween(1, 128),
	)
	validateSeverity = validate.Field("severity",
		validate.Required(),
		validate.OneOf("info", "warning", "critical"),
	)
	validateType = validate.Field("type",
		validate.Required(),
		validate.LengthBetween(1, 128),
	)
)

type Handler struct {
	manager *gateway.Manager
	router  *gateway.Router
	audit   domain.GatewayAuditRepository // nil when auditing is disabled
	logger  logging.Logger
}

func NewHandler(
	manager *gateway.Manager,
	router *gateway.Router,
	audit domain.GatewayAuditRepository,
	logger logging.Logger,
) *Handler {
	return &Handler{
		manager: manager,
		router:  router,
		audit:   audit,
		logger:  logger,
	}
}

// ListClientsHandler godoc
// @Summary      List active connections
// @Description  Returns every live connection with its identity and room memberships
// @Tags         admin
// @Produce      json
// @Success      200 {object} clientsResponse "Active connections"
// @Router       /api/admin/clients [get]
func (h *Handler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	clients := h.manager.Clients()
	json.Write(w, http.StatusOK, clientsResponse{
		Count:   len(clients),
		Clients: clients,
	})
}

// ListTenantClientsHandler godoc
// @Summary      List a tenant's active connections
// @Description  Returns the live connections scoped to one tenant
// @Tags         admin
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Success      200 {object} clientsResponse "Active connections for the tenant"
// @Failure      400 {object} map[string]interface{} "Bad request - missing tenant ID"
// @Router       /api/admin/tenants/{tenantId}/clients [get]
func (h *Handler) ListTenantClientsHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		json.WriteValidationError(w, errors.New("tenant ID is missing"))
		return
	}

	clients := h.manager.ClientsByTenant(tenantID)
	json.Write(w, http.StatusOK, clientsResponse{
		Count:   len(clients),
		Clients: clients,
	})
}

// BroadcastHandler godoc
// @Summary      Broadcast an event
// @Description  Resolves the target (rooms, then userIds, then roles+tenantId, then tenantId) and fans the event out to every member
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body broadcastRequest true "Broadcast parameters"
// @Success      200 {object} broadcastResponse "Delivery count and resolved rooms"
// @Failure      400 {object} map[string]interface{} "Bad request - validation error"
// @Router       /api/admin/broadcast [post]
func (h *Handler) BroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := validateEvent(req.Event); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	target := gateway.Target{
		Rooms:                req.Rooms,
		UserIDs:              req.UserIDs,
		Roles:                req.Roles,
		TenantID:             req.TenantID,
		ExcludeConnectionIDs: req.Exclude,
	}

	rooms := h.router.Resolve(target)
	if len(rooms) == 0 {
		json.WriteValidationError(w, errors.New("target resolves to no rooms"))
		return
	}

	delivered := h.router.Broadcast(target, gateway.NewMessage(req.Event, req.TenantID, req.Data))

	json.Write(w, http.StatusOK, broadcastResponse{
		Delivered: delivered,
		Rooms:     rooms,
	})
}

// NotifyUserHandler godoc
// @Summary      Notify a user
// @Description  Sends a structured notification to every connection of one user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body notifyRequest true "Notification parameters"
// @Success      200 {object} broadcastResponse "Delivery count and resolved rooms"
// @Failure      400 {object} map[string]interface{} "Bad request - validation error"
// @Router       /api/admin/notify/user [post]
func (h *Handler) NotifyUserHandler(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.UserID == "" {
		json.WriteValidationError(w, errors.New("userId is required"))
		return
	}

	h.notify(w, req, gateway.Target{UserIDs: []string{req.UserID}})
}

// NotifyRoleHandler godoc
// @Summary      Notify a role
// @Description  Sends a structured notification to every connection holding a role within a tenant
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body notifyRequest true "Notification parameters"
// @Success      200 {object} broadcastResponse "Delivery count and resolved rooms"
// @Failure      400 {object} map[string]interface{} "Bad request - validation error"
// @Router       /api/admin/notify/role [post]
func (h *Handler) NotifyRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.Role == "" || req.TenantID == "" {
		json.WriteValidationError(w, errors.New("role and tenantId are required"))
		return
	}

	h.notify(w, req, gateway.Target{Roles: []string{req.Role}, TenantID: req.TenantID})
}

// NotifyTenantHandler godoc
// @Summary      Notify a tenant
// @Description  Sends a structured notification to every connection of one tenant
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body notifyRequest true "Notification parameters"
// @Success      200 {object} broadcastResponse "Delivery count and resolved rooms"
// @Failure      400 {object} map[string]interface{} "Bad request - validation error"
// @Router       /api/admin/notify/tenant [post]
func (h *Handler) NotifyTenantHandler(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.TenantID == "" {
		json.WriteValidationError(w, errors.New("tenantId is required"))
		return
	}

	h.notify(w, req, gateway.Target{TenantID: req.TenantID})
}

func (h *Handler) notify(w http.ResponseWriter, req notifyRequest, target gateway.Target) {
	if err := validateType(req.Type); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := validateSeverity(req.Severity); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	msg := gateway.NewMessage(gateway.EventNotification, req.TenantID, map[string]any{
		"type":     req.Type,
		"severity": req.Severity,
		"payload":  req.Payload,
	})

	delivered := h.router.Broadcast(target, msg)

	json.Write(w, http.StatusOK, broadcastResponse{
		Delivered: delivered,
		Rooms:     h.router.Resolve(target),
	})
}

// PingHandler godoc
// @Summary      Ping a connection
// @Description  Sends a connection-test message to one live connection
// @Tags         admin
// @Produce      json
// @Param        connectionId path string true "Connection ID"
// @Success      200 {object} map[string]interface{} "Ping queued"
// @Failure      404 {object} map[string]interface{} "Connection not found"
// @Router       /api/admin/clients/{connectionId}/ping [post]
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "connectionId")
	if connID == "" {
		json.WriteValidationError(w, errors.New("connection ID is missing"))
		return
	}

	if err := h.manager.Ping(connID); err != nil {
		if errors.Is(err, gateway.ErrUnknownClient) {
			json.WriteNotFoundError(w, "connection not found")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, map[string]any{"connectionId": connID, "queued": true})
}

// ListTenantAuditHandler godoc
// @Summary      List a tenant's connection audit trail
// @Description  Returns the most recent connect/disconnect audit entries for one tenant
// @Tags         admin
// @Produce      json
// @Param        tenantId path string true "Tenant ID"
// @Success      200 {object} map[string]interface{} "Audit entries, newest first"
// @Failure      400 {object} map[string]interface{} "Bad request - missing tenant ID"
// @Failure      503 {object} map[string]interface{} "Auditing disabled"
// @Router       /api/admin/tenants/{tenantId}/audit [get]
func (h *Handler) ListTenantAuditHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		json.WriteValidationError(w, errors.New("tenant ID is missing"))
		return
	}

	if h.audit == nil {
		json.WriteError(w, http.StatusServiceUnavailable, errors.New("auditing disabled"), "Connection auditing is not enabled")
		return
	}

	entries, err := h.audit.GetByTenant(r.Context(), tenantID, maxAuditEntries)
	if err != nil {
		h.logger.Error(logging.Mongo, logging.Query, "audit query failed", map[logging.ExtraKey]any{
			logging.TenantID:     tenantID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}
