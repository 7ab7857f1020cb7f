package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

func (h *Handler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*domain.Principal)

	notifications, err := h.repository.ListNotificationsByRecipient(principal.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取通知成功", notifications)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*domain.Principal)

	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "通知ID无效")
		return
	}

	// 只有收件人本人能标记已读
	if err := h.repository.MarkNotificationRead(id, principal.Email); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "通知不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "已标记为已读", nil)
}

// DispatchSystemNotification 供管理员发送系统通知，
// 返回 dispatcher 的确认结果，投递失败对调用方可见但不会被静默丢弃
func (h *Handler) DispatchSystemNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID string `json:"recipientID" validate:"required,email"`
		Title       string `json:"title" validate:"required"`
		Message     string `json:"message" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 系统事件没有对应的投稿状态，用随机 ID 即可
	result := h.dispatcher.Dispatch(&domain.LifecycleEvent{
		EventID:     "sys_" + uuid.NewString(),
		RecipientID: req.RecipientID,
		Type:        domain.NotificationTypeSystem,
		Title:       req.Title,
		Message:     req.Message,
	})

	if !result.OK {
		h.errorResponse(w, r, "通知已进入失败队列："+result.Reason)
		return
	}

	h.successResponse(w, r, "通知已进入投递队列", result)
}

// GetFailedNotifications 是运维用的失败队列，列出所有投递彻底失败、需要人工跟进的通知
func (h *Handler) GetFailedNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.repository.ListFailedNotifications()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取失败通知成功", notifications)
}
