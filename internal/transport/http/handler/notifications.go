package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-notify-api/internal/application/delivery"
	"github.com/go-notify-api/internal/application/notification"
	"github.com/go-notify-api/internal/domain"
	"github.com/go-notify-api/internal/pkg/validate"
	"github.com/go-notify-api/internal/transport/http/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NotificationHandler handles the user-facing notification endpoints plus
// the internal producer seam.
type NotificationHandler struct {
	svc    notification.Service
	router delivery.Service
}

func NewNotificationHandler(svc notification.Service, router delivery.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc, router: router}
}

// List serves GET /notifications with page, pageSize, unreadOnly and grouped
// query parameters. Pagination bounds are enforced here, before any store
// access.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.List(r.Context(), claims.UserID, opts)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func parseListOptions(r *http.Request) (domain.ListOptions, error) {
	opts := domain.ListOptions{Page: 1, PageSize: defaultPageSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return opts, fmt.Errorf("page must be a positive integer")
		}
		opts.Page = page
	}
	if v := q.Get("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > maxPageSize {
			return opts, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}
		opts.PageSize = size
	}
	opts.UnreadOnly = q.Get("unreadOnly") == "true"
	opts.Grouped = q.Get("grouped") == "true"
	return opts, nil
}

// UnreadCount serves the cheap polling endpoint.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	count, err := h.svc.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, UnreadCountData{Count: count})
}

// MarkRead serves POST /notifications/mark-read. An omitted notificationId
// means "mark everything read" for the caller.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.MarkReadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var err error
	if req.NotificationID != nil {
		// An explicitly empty id is a client bug, not a mark-all request.
		if *req.NotificationID == "" {
			writeError(w, http.StatusBadRequest, "notificationId must not be empty")
			return
		}
		err = h.svc.MarkRead(r.Context(), claims.UserID, *req.NotificationID)
	} else {
		err = h.svc.MarkAllRead(r.Context(), claims.UserID)
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, MutationData{Success: true})
}

// Delete serves DELETE /notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, DeleteData{Deleted: true})
}

// Reconcile recomputes the caller's unread counter from the notification
// set and overwrites the cell. Self-service repair for counter drift.
func (h *NotificationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	count, err := h.svc.Reconcile(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeData(w, http.StatusOK, UnreadCountData{Count: count})
}

// Create is the producer seam: event producers post already-rendered
// notifications here and the delivery router decides the channels. Not part
// of the user-facing contract; guarded by the producer token middleware.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, channels, err := h.router.Deliver(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	if n == nil {
		// Suppressed by the recipient's type preference.
		writeData(w, http.StatusOK, map[string]interface{}{"suppressed": true})
		return
	}
	writeData(w, http.StatusCreated, map[string]interface{}{
		"notification": n,
		"channels":     channels,
	})
}
