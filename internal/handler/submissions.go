package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthorID    string `json:"authorID" validate:"required,email"`
		Title       string `json:"title" validate:"required"`
		ArtifactURL string `json:"artifactURL" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	submission := &domain.Submission{
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		ArtifactURL: req.ArtifactURL,
	}

	if err := h.repository.CreateSubmission(submission); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通知管理员有新投稿，投递失败不影响投稿本身
	h.dispatcher.Dispatch(&domain.LifecycleEvent{
		EventID:      domain.LifecycleEventID(submission.ID, submission.Status),
		SubmissionID: &submission.ID,
		RecipientID:  h.config.Notification.AdminRecipient,
		Type:         domain.NotificationTypeSubmission,
		Title:        "新投稿",
		Message:      fmt.Sprintf("作者 %s 提交了新投稿《%s》", submission.AuthorID, submission.Title),
	})

	h.successResponse(w, r, "投稿创建成功", submission)
}

func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	submission := r.Context().Value(SubmissionCtxKey).(*domain.Submission)
	h.successResponse(w, r, "获取投稿成功", submission)
}

func (h *Handler) TransitionSubmission(w http.ResponseWriter, r *http.Request) {
	submission := r.Context().Value(SubmissionCtxKey).(*domain.Submission)

	var req struct {
		ExpectedStatus string `json:"expectedStatus" validate:"required,oneof=draft submitted under_review accepted"`
		NewStatus      string `json:"newStatus" validate:"required,oneof=draft submitted under_review accepted"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	expectedStatus := domain.SubmissionStatus(req.ExpectedStatus)
	newStatus := domain.SubmissionStatus(req.NewStatus)

	if !expectedStatus.CanTransitionTo(newStatus) {
		h.errorResponse(w, r, fmt.Sprintf("不允许从 %s 流转到 %s", expectedStatus, newStatus))
		return
	}

	// 同一个流转重试时幂等：目标状态已经达到就直接返回当前记录，不再产生事件
	if submission.Status == newStatus {
		h.successResponse(w, r, "投稿状态未变化", submission)
		return
	}

	updated, err := h.repository.TransitionSubmission(submission.ID, expectedStatus, newStatus)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// compare-and-set 未命中，重新读取判断是不是同一个流转的重试刚好在并发中先完成了
			current, getErr := h.repository.GetSubmissionByID(submission.ID)
			if getErr != nil {
				h.internalServerError(w, r, getErr)
				return
			}
			if current.Status == newStatus {
				h.successResponse(w, r, "投稿状态未变化", current)
				return
			}
			// 当前状态和预期不一致，另一个评审人先完成了别的操作
			h.errorResponse(w, r, "投稿状态已被修改，请刷新后重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 每次成功的流转恰好产生一个生命周期事件；
	// 事件 ID 由投稿和目标状态决定，重复投递会在消费端被去重
	h.dispatcher.Dispatch(transitionEvent(updated, h.config.Notification.AdminRecipient))

	h.successResponse(w, r, "投稿状态更新成功", updated)
}

// transitionEvent 根据流转后的状态决定事件的类型、收件人和内容
func transitionEvent(submission *domain.Submission, adminRecipient string) *domain.LifecycleEvent {
	event := &domain.LifecycleEvent{
		EventID:      domain.LifecycleEventID(submission.ID, submission.Status),
		SubmissionID: &submission.ID,
		RecipientID:  submission.AuthorID,
		Type:         domain.NotificationTypeReview,
	}

	switch submission.Status {
	case domain.SubmissionStatusSubmitted:
		// 退回后重新提交，和新投稿一样通知管理员
		event.RecipientID = adminRecipient
		event.Type = domain.NotificationTypeSubmission
		event.Title = "投稿重新提交"
		event.Message = fmt.Sprintf("作者 %s 重新提交了投稿《%s》", submission.AuthorID, submission.Title)
	case domain.SubmissionStatusUnderReview:
		event.Title = "投稿进入评审"
		event.Message = fmt.Sprintf("您的投稿《%s》已进入评审阶段", submission.Title)
	case domain.SubmissionStatusAccepted:
		event.Title = "投稿已录用"
		event.Message = fmt.Sprintf("恭喜，您的投稿《%s》已被录用", submission.Title)
	case domain.SubmissionStatusDraft:
		event.Title = "投稿被退回修改"
		event.Message = fmt.Sprintf("您的投稿《%s》被退回修改，请修改后重新提交", submission.Title)
	}

	return event
}

func (h *Handler) GetAuthorPendingSubmissions(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "id")
	if authorID == "" {
		h.errorResponse(w, r, "作者ID无效")
		return
	}

	submissions, err := h.repository.ListPendingSubmissionsByAuthor(authorID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取待处理投稿成功", submissions)
}

func (h *Handler) GetReviewQueue(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.repository.ListSubmissionsForReview()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取评审队列成功", submissions)
}
