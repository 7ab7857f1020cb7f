package credential

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

var (
	// ErrStoreUnavailable 表示凭证文件本身不可读
	ErrStoreUnavailable = errors.New("凭证存储不可用")
	// ErrMalformedRecord 表示凭证文件中存在无法解析的记录，
	// 此时整次加载失败，绝不能返回一个不完整的管理员列表
	ErrMalformedRecord = errors.New("凭证记录格式错误")
)

// 凭证文件的表头，列的顺序是固定的
var expectedHeader = []string{"email", "password_hash", "full_name", "role"}

// Store 从一个可人工编辑的 CSV 文件中加载管理员记录。
// 文件由外部的开通流程维护，对本系统而言是只读的。
// 加载结果会缓存一小段时间（可配置），文件被修改后缓存会立即失效。
type Store struct {
	filePath string
	cacheTTL time.Duration

	mu       sync.Mutex
	records  []*domain.AdministratorRecord
	loadedAt time.Time
	modTime  time.Time
}

func NewStore(filePath string, cacheTTL time.Duration) *Store {
	return &Store{
		filePath: filePath,
		cacheTTL: cacheTTL,
	}
}

// ListAdministrators 返回凭证文件中的全部管理员记录，可以被并发调用
func (s *Store) ListAdministrators() ([]*domain.AdministratorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err.Error())
	}

	// 缓存未过期且文件没有被外部修改过，直接返回缓存
	if s.records != nil && time.Since(s.loadedAt) < s.cacheTTL && info.ModTime().Equal(s.modTime) {
		return s.records, nil
	}

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	s.records = records
	s.loadedAt = time.Now()
	s.modTime = info.ModTime()

	return records, nil
}

// Invalidate 使缓存立即失效，下次读取会重新加载文件
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

func (s *Store) load() ([]*domain.AdministratorRecord, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err.Error())
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: 文件缺少表头", ErrMalformedRecord)
		}
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err.Error())
	}

	if len(header) != len(expectedHeader) {
		return nil, fmt.Errorf("%w: 表头列数不正确", ErrMalformedRecord)
	}
	for i, col := range expectedHeader {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("%w: 表头第 %d 列应为 %s", ErrMalformedRecord, i+1, col)
		}
	}

	records := make([]*domain.AdministratorRecord, 0)
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// encoding/csv 会对列数不一致的行报错
			return nil, fmt.Errorf("%w: 第 %d 行无法解析", ErrMalformedRecord, line)
		}

		record, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行: %s", ErrMalformedRecord, line, err.Error())
		}

		// 邮箱是唯一键，出现重复说明文件已经不一致了
		if seen[record.Email] {
			return nil, fmt.Errorf("%w: 第 %d 行邮箱重复", ErrMalformedRecord, line)
		}
		seen[record.Email] = true

		records = append(records, record)
	}

	return records, nil
}

func parseRecord(row []string) (*domain.AdministratorRecord, error) {
	for i, field := range row {
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("第 %d 列为空", i+1)
		}
	}

	role := domain.Role(strings.TrimSpace(row[3]))
	if role != domain.RoleAdmin {
		return nil, fmt.Errorf("未知角色 %q", row[3])
	}

	return &domain.AdministratorRecord{
		// 邮箱统一转为小写，验证时按小写精确匹配
		Email:        strings.ToLower(strings.TrimSpace(row[0])),
		PasswordHash: row[1],
		FullName:     strings.TrimSpace(row[2]),
		Role:         role,
	}, nil
}
