package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// GenerateRandomAuthorEmail 生成一个作者邮箱，作者以邮箱作为身份标识
func GenerateRandomAuthorEmail(emailDomainName string) string {
	name := GenerateRandomChineseName()
	return GenerateUsernameFromChineseName(name) + "@" + emailDomainName
}

var submissionTopics = []string{
	"教育技术对学习效果的影响研究",
	"高校教师培养模式的比较分析",
	"跨学科研究方法综述",
	"远程教学平台的可用性评估",
	"科研数据管理的最佳实践",
}

func GenerateRandomSubmission(authorID string) *domain.Submission {
	title := submissionTopics[rand.Intn(len(submissionTopics))] + GenerateRandomID(2, 2)

	return &domain.Submission{
		Title:       title,
		AuthorID:    authorID,
		ArtifactURL: fmt.Sprintf("/pdfs/%s.pdf", GenerateRandomID(6, 4)),
	}
}

var paymentStatuses = []domain.PaymentStatus{
	domain.PaymentStatusPending,
	domain.PaymentStatusCompleted,
	domain.PaymentStatusFailed,
}

func GenerateRandomPayment(submissionID int64) *domain.Payment {
	return &domain.Payment{
		SubmissionID: submissionID,
		Amount:       int64(rand.Intn(50000) + 10000), // 100 ~ 600 元
		Status:       paymentStatuses[rand.Intn(len(paymentStatuses))],
		Reference:    fmt.Sprintf("PAY_%d_%04d", time.Now().Unix(), rand.Intn(10000)),
	}
}
