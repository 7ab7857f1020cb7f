package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmissionStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    SubmissionStatus
		to      SubmissionStatus
		allowed bool
	}{
		{SubmissionStatusDraft, SubmissionStatusSubmitted, true},
		{SubmissionStatusSubmitted, SubmissionStatusUnderReview, true},
		{SubmissionStatusUnderReview, SubmissionStatusAccepted, true},
		// 退回修改是唯一允许的回退边
		{SubmissionStatusUnderReview, SubmissionStatusDraft, true},

		{SubmissionStatusAccepted, SubmissionStatusSubmitted, false},
		{SubmissionStatusAccepted, SubmissionStatusDraft, false},
		{SubmissionStatusAccepted, SubmissionStatusUnderReview, false},
		{SubmissionStatusSubmitted, SubmissionStatusAccepted, false},
		{SubmissionStatusSubmitted, SubmissionStatusDraft, false},
		{SubmissionStatusDraft, SubmissionStatusUnderReview, false},
		{SubmissionStatusDraft, SubmissionStatusAccepted, false},
		{SubmissionStatusSubmitted, SubmissionStatusSubmitted, false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSubmissionStatusFullLifecycle(t *testing.T) {
	// 正常流程：submitted -> under_review -> accepted
	walk := []SubmissionStatus{SubmissionStatusSubmitted, SubmissionStatusUnderReview, SubmissionStatusAccepted}
	for i := 0; i < len(walk)-1; i++ {
		require.True(t, walk[i].CanTransitionTo(walk[i+1]))
	}

	// 录用是终态
	for _, next := range []SubmissionStatus{SubmissionStatusDraft, SubmissionStatusSubmitted, SubmissionStatusUnderReview} {
		require.False(t, SubmissionStatusAccepted.CanTransitionTo(next))
	}

	// 退回修改后可以重新提交
	require.True(t, SubmissionStatusUnderReview.CanTransitionTo(SubmissionStatusDraft))
	require.True(t, SubmissionStatusDraft.CanTransitionTo(SubmissionStatusSubmitted))
}

func TestSubmissionStatusIsValid(t *testing.T) {
	for _, status := range []SubmissionStatus{
		SubmissionStatusDraft,
		SubmissionStatusSubmitted,
		SubmissionStatusUnderReview,
		SubmissionStatusAccepted,
	} {
		require.True(t, status.IsValid())
	}

	require.False(t, SubmissionStatus("rejected").IsValid())
	require.False(t, SubmissionStatus("").IsValid())
}
