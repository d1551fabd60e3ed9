package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"photoedit-backend/internal/models"
	"photoedit-backend/internal/params"
	"photoedit-backend/internal/presence"
	"photoedit-backend/internal/review"
	"photoedit-backend/internal/service"
	"photoedit-backend/internal/store"
	"photoedit-backend/internal/validation"
)

// EditorHandler exposes the edit-session core over HTTP. Identity comes
// from X-User-ID / X-User-Role headers, injected by the API gateway in
// production.
type EditorHandler struct {
	Service *service.SessionService
	Hub     *presence.Hub
	WS      *presence.WSHandler
	Logger  *slog.Logger
}

// NewEditorHandler wires the handler.
func NewEditorHandler(svc *service.SessionService, hub *presence.Hub, logger *slog.Logger) *EditorHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EditorHandler{
		Service: svc,
		Hub:     hub,
		WS:      presence.NewWSHandler(hub, logger),
		Logger:  logger.With("component", "handler"),
	}
}

// Register mounts all routes on the versioned subrouter.
func (h *EditorHandler) Register(api *mux.Router) {
	api.HandleFunc("/assets", h.CreateAsset).Methods("POST")
	api.HandleFunc("/assets/{id}/history", h.GetHistory).Methods("GET")
	api.HandleFunc("/assets/{id}/versions", h.CommitVersion).Methods("POST")
	api.HandleFunc("/assets/{id}/versions/{versionId}", h.GetVersion).Methods("GET")
	api.HandleFunc("/assets/{id}/comments", h.AddComment).Methods("POST")
	api.HandleFunc("/assets/{id}/comments", h.ListComments).Methods("GET")
	api.HandleFunc("/assets/{id}/activity", h.GetActivity).Methods("GET")
	api.HandleFunc("/assets/{id}/presence", h.Presence).Methods("GET")
	api.HandleFunc("/assignments/{assetId}", h.PutAssignment).Methods("PUT")
	api.HandleFunc("/assignments/{assetId}", h.GetAssignment).Methods("GET")
	api.HandleFunc("/assignments/{assetId}", h.PatchAssignment).Methods("PATCH")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps core errors onto HTTP statuses. Conflicts carry
// the current tip so the client can re-base.
func (h *EditorHandler) writeServiceError(w http.ResponseWriter, err error) {
	var conflict *store.ConflictError
	switch {
	case errors.As(err, &conflict):
		conflictsTotal.Inc()
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "version conflict",
			"current_tip": conflict.CurrentTip,
		})
	case errors.Is(err, store.ErrAssetNotFound),
		errors.Is(err, store.ErrVersionNotFound),
		errors.Is(err, store.ErrAssignmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, review.ErrInvalidTransition), errors.Is(err, store.ErrRootExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathUUID(r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	return id, err == nil
}

func userID(r *http.Request) string { return r.Header.Get("X-User-ID") }

func userRole(r *http.Request) review.Role {
	if r.Header.Get("X-User-Role") == string(review.RoleReviewer) {
		return review.RoleReviewer
	}
	return review.RoleAssignee
}

func (h *EditorHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OriginalURL string `json:"original_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validation.ValidateUserID(userID(r)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateOriginalURL(req.OriginalURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, root, err := h.Service.CreateAsset(r.Context(), req.OriginalURL, userID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	commitsTotal.WithLabelValues(string(models.ActionUpload)).Inc()
	writeJSON(w, http.StatusCreated, map[string]any{
		"asset":        asset,
		"root_version": root,
	})
}

func (h *EditorHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	versions, tip, err := h.Service.History(r.Context(), assetID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": versions,
		"tip":      tip,
	})
}

func (h *EditorHandler) CommitVersion(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req struct {
		ParentVersionID int64         `json:"parent_version_id"`
		ExpectedTip     *int64        `json:"expected_tip,omitempty"`
		Stack           params.Stack  `json:"parameter_stack"`
		Label           string        `json:"label"`
		Action          models.Action `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validation.ValidateUserID(userID(r)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateLabel(req.Label); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateAction(req.Action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A session that undid past its tip commits a branch: the parent is
	// mid-tree while the tip it has seen is newer. Plain linear commits
	// omit expected_tip and race-check against the parent itself.
	lastKnownTip := req.ParentVersionID
	if req.ExpectedTip != nil {
		lastKnownTip = *req.ExpectedTip
	}

	v, err := h.Service.CommitVersion(r.Context(), assetID, lastKnownTip, req.ParentVersionID, req.Stack, req.Label, req.Action, userID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	commitsTotal.WithLabelValues(string(req.Action)).Inc()
	writeJSON(w, http.StatusCreated, v)
}

func (h *EditorHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	versionID, err := strconv.ParseInt(mux.Vars(r)["versionId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	v, err := h.Service.VersionStack(r.Context(), assetID, versionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *EditorHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		Content    string `json:"content"`
		VersionID  *int64 `json:"version_id,omitempty"`
		IsInternal bool   `json:"is_internal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validation.ValidateUserID(userID(r)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateComment(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.Service.AddComment(r.Context(), assetID, userID(r), req.Content, req.VersionID, req.IsInternal)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *EditorHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	cs, err := h.Service.Comments(r.Context(), assetID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": cs})
}

func (h *EditorHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":   h.Hub.Feed(assetID),
		"presence": h.Hub.Entries(assetID),
	})
}

// Presence upgrades to the websocket push channel for one asset.
func (h *EditorHandler) Presence(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	uid := userID(r)
	if uid == "" {
		// Browsers cannot set headers on websocket dials.
		uid = r.URL.Query().Get("user_id")
	}
	if err := validation.ValidateUserID(uid); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	presenceConnections.Inc()
	defer presenceConnections.Dec()
	h.WS.Serve(w, r, assetID, uid)
}

func (h *EditorHandler) PutAssignment(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "assetId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		AssigneeID string `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validation.ValidateAssignee(req.AssigneeID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.Service.Assign(r.Context(), assetID, req.AssigneeID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *EditorHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "assetId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	a, err := h.Service.Assignment(r.Context(), assetID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *EditorHandler) PatchAssignment(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathUUID(r, "assetId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		Status models.AssignmentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validation.ValidateUserID(userID(r)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateStatus(req.Status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.Service.Transition(r.Context(), assetID, req.Status, userID(r), userRole(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	reviewTransitionsTotal.WithLabelValues(string(a.Status)).Inc()
	writeJSON(w, http.StatusOK, a)
}
