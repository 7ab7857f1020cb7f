package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

func (r *Repository) CreateSubmission(submission *domain.Submission) error {
	query := `
		INSERT INTO submissions (title, author_id, artifact_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, submitted_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	submission.Status = domain.SubmissionStatusSubmitted

	args := []any{submission.Title, submission.AuthorID, submission.ArtifactURL, submission.Status}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&submission.ID, &submission.SubmittedAt, &submission.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetSubmissionByID(id int64) (*domain.Submission, error) {
	query := `
		SELECT title, author_id, artifact_url, status, submitted_at, version
		FROM submissions WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	submission := &domain.Submission{
		ID: id,
	}

	dst := []any{&submission.Title, &submission.AuthorID, &submission.ArtifactURL, &submission.Status, &submission.SubmittedAt, &submission.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return submission, nil
}

// TransitionSubmission 用一条带状态条件的 UPDATE 完成 compare-and-set：
// 只有当前状态等于 expectedStatus 时更新才会生效，
// 两个评审人并发操作时只有一个能成功，失败的一方会得到 sql.ErrNoRows
func (r *Repository) TransitionSubmission(id int64, expectedStatus, newStatus domain.SubmissionStatus) (*domain.Submission, error) {
	query := `
		UPDATE submissions
		SET
			status = $1,
			version = version + 1
		WHERE id = $2 AND status = $3
		RETURNING title, author_id, artifact_url, submitted_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	submission := &domain.Submission{
		ID:     id,
		Status: newStatus,
	}

	args := []any{newStatus, id, expectedStatus}
	dst := []any{&submission.Title, &submission.AuthorID, &submission.ArtifactURL, &submission.SubmittedAt, &submission.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return nil, err
	}

	return submission, nil
}

// ListPendingSubmissionsByAuthor 返回作者所有未被录用的投稿，最新的排在最前面
func (r *Repository) ListPendingSubmissionsByAuthor(authorID string) ([]*domain.Submission, error) {
	query := `
		SELECT id, title, artifact_url, status, submitted_at, version
		FROM submissions
		WHERE author_id = $1 AND status != $2
		ORDER BY submitted_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, authorID, domain.SubmissionStatusAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]*domain.Submission, 0)
	for rows.Next() {
		submission := &domain.Submission{
			AuthorID: authorID,
		}
		dst := []any{&submission.ID, &submission.Title, &submission.ArtifactURL, &submission.Status, &submission.SubmittedAt, &submission.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListSubmissionsForReview 返回所有等待评审的投稿（已提交或评审中）
func (r *Repository) ListSubmissionsForReview() ([]*domain.Submission, error) {
	query := `
		SELECT id, title, author_id, artifact_url, status, submitted_at, version
		FROM submissions
		WHERE status = $1 OR status = $2
		ORDER BY submitted_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, domain.SubmissionStatusSubmitted, domain.SubmissionStatusUnderReview)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]*domain.Submission, 0)
	for rows.Next() {
		submission := &domain.Submission{}
		dst := []any{&submission.ID, &submission.Title, &submission.AuthorID, &submission.ArtifactURL, &submission.Status, &submission.SubmittedAt, &submission.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return submissions, nil
}
