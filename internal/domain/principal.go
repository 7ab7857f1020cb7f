package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
)

// Principal 是验证成功后暴露给外部的最小身份信息，不携带任何密码相关的内容
type Principal struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// AdministratorRecord 对应凭证文件中的一行记录，由外部的开通流程维护，本系统只读
type AdministratorRecord struct {
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FullName     string `json:"fullName"`
	Role         Role   `json:"role"`
}

func (r *AdministratorRecord) Principal() *Principal {
	return &Principal{
		Email: r.Email,
		Name:  r.FullName,
		Role:  r.Role,
	}
}
