package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

const tokenCookieName = "__publication_portal_token"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 验证邮箱和密码
	principal, err := h.verifier.Verify(req.Email, req.Password)
	if err != nil {
		// 凭证存储出问题和密码错误是两回事，这里必须是 5xx
		h.internalServerError(w, r, err)
		return
	}

	if principal == nil {
		// 不区分邮箱不存在和密码错误，防止账号枚举
		h.unauthorized(w, r, "邮箱或密码错误")
		return
	}

	// 生成 JWT，jti 同时作为服务端会话记录的键
	expiration := time.Now().Add(time.Duration(h.config.JWT.Expiration) * time.Second)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   principal.Email,
			ID:        jti,
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 持久化会话记录，里面只有最小的 Principal 字段，没有任何机密内容
	if err := h.sessions.Set(r.Context(), jti, principal); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "登录成功", principal)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	// 除了清除 cookie 以外还要删除服务端的会话记录，让未过期的令牌立即失效
	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		claims := &AuthClaims{}
		if _, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}); err == nil {
			if err := h.sessions.Clear(r.Context(), claims.ID); err != nil {
				h.internalServerError(w, r, err)
				return
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:    tokenCookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "登出成功", nil)
}

// GetSession 返回持久化的会话对应的 Principal，供客户端刷新后恢复状态
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*domain.Principal)
	h.successResponse(w, r, "获取会话成功", principal)
}
