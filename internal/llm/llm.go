package llm

import (
	"context"
	"fmt"
)

// Request 描述发送给大模型的一次单轮补全请求。
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response 是大模型返回的文本，Text 可能为空。
type Response struct {
	Text  string
	Model string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// StatusError 表示上游服务返回了非成功的 HTTP 状态码。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}
