package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

func newTransitionTestHandler(t *testing.T) *Handler {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, _ := uni.GetTranslator("zh")
	require.NoError(t, zh_translations.RegisterDefaultTranslations(validate, trans))

	return &Handler{
		validate:   validate,
		translator: trans,
	}
}

// 重试同一个流转（expectedStatus 是旧状态，目标状态已经达到）必须是幂等的：
// 返回当前记录，不访问数据库也不产生事件
func TestTransitionSubmissionRetryIsIdempotent(t *testing.T) {
	h := newTransitionTestHandler(t)

	submission := &domain.Submission{
		ID:       42,
		Title:    "测试投稿",
		AuthorID: "author@example.org",
		Status:   domain.SubmissionStatusUnderReview,
	}

	body := strings.NewReader(`{"expectedStatus":"submitted","newStatus":"under_review"}`)
	req := httptest.NewRequest(http.MethodPost, "/submissions/42/transition", body)
	req = req.WithContext(context.WithValue(req.Context(), SubmissionCtxKey, submission))

	// repository 和 dispatcher 都是 nil，
	// 幂等分支如果误入 CAS 或事件投递这里会直接 panic
	rec := httptest.NewRecorder()
	h.TransitionSubmission(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "投稿状态未变化", resp.Message)
}

// 不合法的流转边（比如已录用之后再流转）仍然要被拒绝
func TestTransitionSubmissionRejectsInvalidEdge(t *testing.T) {
	h := newTransitionTestHandler(t)

	submission := &domain.Submission{
		ID:       42,
		Title:    "测试投稿",
		AuthorID: "author@example.org",
		Status:   domain.SubmissionStatusAccepted,
	}

	body := strings.NewReader(`{"expectedStatus":"accepted","newStatus":"draft"}`)
	req := httptest.NewRequest(http.MethodPost, "/submissions/42/transition", body)
	req = req.WithContext(context.WithValue(req.Context(), SubmissionCtxKey, submission))

	rec := httptest.NewRecorder()
	h.TransitionSubmission(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
}

func TestTransitionEvent(t *testing.T) {
	const adminRecipient = "admin@portal.example.org"

	submission := &domain.Submission{
		ID:       42,
		Title:    "测试投稿",
		AuthorID: "author@example.org",
	}

	tests := []struct {
		status        domain.SubmissionStatus
		wantRecipient string
		wantType      domain.NotificationType
	}{
		// 重新提交通知管理员，其余状态通知作者本人
		{domain.SubmissionStatusSubmitted, adminRecipient, domain.NotificationTypeSubmission},
		{domain.SubmissionStatusUnderReview, submission.AuthorID, domain.NotificationTypeReview},
		{domain.SubmissionStatusAccepted, submission.AuthorID, domain.NotificationTypeReview},
		{domain.SubmissionStatusDraft, submission.AuthorID, domain.NotificationTypeReview},
	}

	for _, tt := range tests {
		submission.Status = tt.status
		event := transitionEvent(submission, adminRecipient)

		require.Equal(t, domain.LifecycleEventID(submission.ID, tt.status), event.EventID)
		require.Equal(t, tt.wantRecipient, event.RecipientID)
		require.Equal(t, tt.wantType, event.Type)
		require.NotEmpty(t, event.Title)
		require.NotEmpty(t, event.Message)
		require.Equal(t, submission.ID, *event.SubmissionID)
	}
}

func TestTransitionEventIDIsDeterministic(t *testing.T) {
	submission := &domain.Submission{
		ID:       7,
		Title:    "标题",
		AuthorID: "author@example.org",
		Status:   domain.SubmissionStatusAccepted,
	}

	first := transitionEvent(submission, "admin@portal.example.org")
	second := transitionEvent(submission, "admin@portal.example.org")
	require.Equal(t, first.EventID, second.EventID)
}
