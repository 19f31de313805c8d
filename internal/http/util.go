package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tether-data/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBytes))
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := readBody(r, maxBytes)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeError 领域错误到响应的统一映射
// 业务失败走 HTTP 200 + 错误封装；需要登录的场景用 401 + code 60401
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSignInRequired):
		writeJSON(w, http.StatusUnauthorized, FailSignIn("sign in required"))
	case errors.Is(err, domain.ErrAuthorization):
		writeJSON(w, http.StatusForbidden, Fail("admin access required"))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	default:
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	}
}
