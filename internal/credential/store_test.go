package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

func writeCredentialFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "administrators.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStoreListAdministrators(t *testing.T) {
	path := writeCredentialFile(t, "email,password_hash,full_name,role\n"+
		"a@x.org,$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy,测试管理员,admin\n"+
		"B@X.ORG,$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy,另一位管理员,admin\n")

	store := NewStore(path, 5*time.Second)

	records, err := store.ListAdministrators()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a@x.org", records[0].Email)
	// 邮箱在加载时统一转为小写
	require.Equal(t, "b@x.org", records[1].Email)
	require.Equal(t, domain.RoleAdmin, records[0].Role)
}

func TestStoreFileMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "不存在.csv"), 5*time.Second)

	_, err := store.ListAdministrators()
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestStoreFailsClosedOnMalformedRecord(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "缺少列",
			content: "email,password_hash,full_name,role\na@x.org,hash,测试管理员,admin\nb@x.org,hash,缺少角色\n",
		},
		{
			name:    "空字段",
			content: "email,password_hash,full_name,role\na@x.org,,测试管理员,admin\n",
		},
		{
			name:    "未知角色",
			content: "email,password_hash,full_name,role\na@x.org,hash,测试管理员,superuser\n",
		},
		{
			name:    "邮箱重复",
			content: "email,password_hash,full_name,role\na@x.org,hash,测试管理员,admin\nA@x.org,hash,测试管理员,admin\n",
		},
		{
			name:    "表头错误",
			content: "email,password,name,role\na@x.org,hash,测试管理员,admin\n",
		},
		{
			name:    "空文件",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(writeCredentialFile(t, tt.content), 5*time.Second)

			// 任何一行解析失败都必须导致整次加载失败，而不是静默跳过
			records, err := store.ListAdministrators()
			require.ErrorIs(t, err, ErrMalformedRecord)
			require.Nil(t, records)
		})
	}
}

func TestStoreCacheInvalidatedOnFileChange(t *testing.T) {
	path := writeCredentialFile(t, "email,password_hash,full_name,role\n"+
		"a@x.org,hash-a,测试管理员,admin\n")

	store := NewStore(path, time.Hour)

	records, err := store.ListAdministrators()
	require.NoError(t, err)
	require.Len(t, records, 1)

	// 模拟外部开通流程修改了文件
	require.NoError(t, os.WriteFile(path, []byte("email,password_hash,full_name,role\n"+
		"a@x.org,hash-a,测试管理员,admin\n"+
		"b@x.org,hash-b,新管理员,admin\n"), 0o600))
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	records, err = store.ListAdministrators()
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestStoreServesFromCacheWithinTTL(t *testing.T) {
	path := writeCredentialFile(t, "email,password_hash,full_name,role\n"+
		"a@x.org,hash-a,测试管理员,admin\n")

	store := NewStore(path, time.Hour)

	first, err := store.ListAdministrators()
	require.NoError(t, err)

	second, err := store.ListAdministrators()
	require.NoError(t, err)

	// TTL 内且文件未变化时返回同一份缓存
	require.Same(t, first[0], second[0])
}
