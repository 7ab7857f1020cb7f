package domain

import "time"

type SubmissionStatus string

const (
	SubmissionStatusDraft       SubmissionStatus = "draft"
	SubmissionStatusSubmitted   SubmissionStatus = "submitted"
	SubmissionStatusUnderReview SubmissionStatus = "under_review"
	SubmissionStatusAccepted    SubmissionStatus = "accepted"
)

// 投稿状态机：只允许向前流转，唯一的例外是退回修改（under_review -> draft）
var allowedTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusDraft:       {SubmissionStatusSubmitted},
	SubmissionStatusSubmitted:   {SubmissionStatusUnderReview},
	SubmissionStatusUnderReview: {SubmissionStatusAccepted, SubmissionStatusDraft},
	SubmissionStatusAccepted:    {},
}

func (s SubmissionStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type Submission struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	AuthorID    string           `json:"authorID"`
	ArtifactURL string           `json:"artifactURL"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submittedAt"`
	Version     int32            `json:"-"`
}
