package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func newTestVerifier(t *testing.T) (*Verifier, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "administrators.csv")
	content := fmt.Sprintf("email,password_hash,full_name,role\na@x.org,%s,测试管理员,admin\n", hash)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return NewVerifier(NewStore(path, time.Second)), path
}

func TestVerifySuccess(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	principal, err := verifier.Verify("a@x.org", "secret")
	require.NoError(t, err)
	require.NotNil(t, principal)
	require.Equal(t, "a@x.org", principal.Email)
	require.Equal(t, "测试管理员", principal.Name)
	require.Equal(t, domain.RoleAdmin, principal.Role)
}

func TestVerifyEmailCaseNormalized(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	principal, err := verifier.Verify("  A@X.ORG ", "secret")
	require.NoError(t, err)
	require.NotNil(t, principal)
}

func TestVerifyNegativeResultsIndistinguishable(t *testing.T) {
	verifier, _ := newTestVerifier(t)

	// 密码错误和邮箱不存在必须得到完全一样的结果
	wrongPassword, errWrongPassword := verifier.Verify("a@x.org", "wrong")
	unknownEmail, errUnknownEmail := verifier.Verify("nobody@x.org", "secret")

	require.NoError(t, errWrongPassword)
	require.NoError(t, errUnknownEmail)
	require.Nil(t, wrongPassword)
	require.Nil(t, unknownEmail)
}

func TestVerifyStoreUnavailable(t *testing.T) {
	verifier, path := newTestVerifier(t)

	// 凭证文件被删除时必须是基础设施错误，而不是普通的验证失败
	require.NoError(t, os.Remove(path))

	principal, err := verifier.Verify("a@x.org", "secret")
	require.Nil(t, principal)
	require.ErrorIs(t, err, ErrInfrastructure)
}
