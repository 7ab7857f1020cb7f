package seed

import (
	"encoding/csv"
	"log/slog"
	"math/rand"
	"os"

	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/repository"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// SeedCredentialFile 生成管理员凭证文件，模拟外部的开通流程。
// 文件里存的是 bcrypt 哈希，明文密码只在这里出现一次
func SeedCredentialFile(path string, password string, n int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"email", "password_hash", "full_name", "role"}); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		fullName := utils.GenerateRandomChineseName()
		email := utils.GenerateUsernameFromChineseName(fullName) + "@portal.example.org"

		if err := writer.Write([]string{email, string(hash), fullName, string(domain.RoleAdmin)}); err != nil {
			return err
		}

		slog.Info("已生成管理员", "email", email, "fullName", fullName)
	}

	return nil
}

// SeedSubmissions 插入随机作者的随机投稿，并把一部分投稿往后流转几步，
// 方便本地联调时评审队列里有数据
func SeedSubmissions(r *repository.Repository, n int) {
	for i := 0; i < n; i++ {
		authorID := utils.GenerateRandomAuthorEmail("example.org")
		submission := utils.GenerateRandomSubmission(authorID)

		if err := r.CreateSubmission(submission); err != nil {
			slog.Error("插入投稿失败", "error", err)
			continue
		}

		// 随机让一部分投稿进入评审或被录用
		steps := rand.Intn(3)
		walk := []domain.SubmissionStatus{domain.SubmissionStatusUnderReview, domain.SubmissionStatusAccepted}
		current := submission.Status
		for j := 0; j < steps; j++ {
			next := walk[j]
			if _, err := r.TransitionSubmission(submission.ID, current, next); err != nil {
				slog.Error("流转投稿失败", "error", err)
				break
			}
			current = next
		}

		slog.Info("已插入投稿", "id", submission.ID, "author", authorID, "status", current)
	}
}

// SeedPayments 为已有投稿插入随机支付记录，模拟外部支付流程的写入
func SeedPayments(r *repository.Repository, n int) {
	submissions, err := r.ListSubmissionsForReview()
	if err != nil {
		slog.Error("无法获取投稿列表", "error", err)
		return
	}
	if len(submissions) == 0 {
		slog.Error("没有可以关联支付记录的投稿，请先插入投稿")
		return
	}

	for i := 0; i < n; i++ {
		submission := submissions[rand.Intn(len(submissions))]
		payment := utils.GenerateRandomPayment(submission.ID)

		if err := r.InsertPayment(payment); err != nil {
			slog.Error("插入支付记录失败", "error", err)
			continue
		}

		slog.Info("已插入支付记录", "id", payment.ID, "submissionID", submission.ID, "amount", payment.Amount)
	}
}
