package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ErrInfrastructure 表示验证过程因为凭证存储的问题而无法完成，
// 和"邮箱或密码错误"是两类完全不同的结果，后者不是 error
var ErrInfrastructure = errors.New("凭证验证基础设施错误")

// 当邮箱不存在时用来做一次假的哈希比较，
// 使未知邮箱和密码错误两种情况在耗时上不可区分（"dummy" 的 bcrypt 哈希）
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Verifier 根据凭证存储验证管理员身份，除了读取存储之外没有任何副作用
type Verifier struct {
	store *Store
}

func NewVerifier(store *Store) *Verifier {
	return &Verifier{store: store}
}

// Verify 验证邮箱和明文密码。
// 匹配成功返回 Principal；邮箱不存在和密码错误都返回 (nil, nil)，
// 调用方不应该（也无法）区分这两种失败。
// 永远不会返回或记录明文密码和存储的哈希。
func (v *Verifier) Verify(email, password string) (*domain.Principal, error) {
	records, err := v.store.ListAdministrators()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInfrastructure, err.Error())
	}

	email = strings.ToLower(strings.TrimSpace(email))

	var record *domain.AdministratorRecord
	for _, r := range records {
		if r.Email == email {
			record = r
			break
		}
	}

	if record == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		// 哈希本身无法解析等情况属于存储的数据问题
		return nil, fmt.Errorf("%w: %s", ErrInfrastructure, err.Error())
	}

	return record.Principal(), nil
}
