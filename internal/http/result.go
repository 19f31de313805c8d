package httpapi

// Result 统一响应封装，前端 Axios 拦截器按 code 分流
// - code: 2000 成功
// - type: 'success' | 'error' | 'warning'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultSignInRequired 使用 code=60401 + HTTP 401（前端以此触发登录升级提示）
	ResultSignInRequired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func FailSignIn(message string) Result[any] {
	return Result[any]{Code: ResultSignInRequired, Type: "error", Message: message, Result: nil}
}
