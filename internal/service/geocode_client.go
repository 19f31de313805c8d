package service

import (
	"context"
	"fmt"
	"time"

	"tether-data/internal/store"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GeocodeResponse Nominatim 风格 reverse 接口的响应（只取 display_name）
type GeocodeResponse struct {
	DisplayName string `json:"display_name"`
}

// Geocoder 坐标 → 地名（best-effort 协作方，失败可容忍）
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// GeocodeClient 反向地理编码客户端
// 失败语义：任何错误只导致 location 降级/省略，绝不阻塞或中止日志写入
type GeocodeClient struct {
	httpClient *resty.Client
	kv         store.KV
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewGeocodeClient 创建地理编码客户端
// baseURL 为空表示禁用（ReverseGeocode 直接报错，调用方降级为坐标字符串）
func NewGeocodeClient(baseURL string, timeout time.Duration, kv store.KV, cacheTTL time.Duration, logger *zap.Logger) *GeocodeClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "tether-data/1.0")

	return &GeocodeClient{
		httpClient: client,
		kv:         kv,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

var _ Geocoder = (*GeocodeClient)(nil)

// ReverseGeocode 坐标解析为人类可读地名
// 按 0.001 度（约百米）截断坐标做缓存键，避免同一地点反复外呼
func (c *GeocodeClient) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	if c.httpClient.BaseURL == "" {
		return "", fmt.Errorf("geocoder disabled")
	}

	cacheKey := fmt.Sprintf("geocode:%.3f:%.3f", lat, lng)
	if c.kv != nil {
		if cached, err := c.kv.Get(ctx, cacheKey); err == nil && cached != "" {
			return cached, nil
		}
	}

	var response GeocodeResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("lat", fmt.Sprintf("%f", lat)).
		SetQueryParam("lon", fmt.Sprintf("%f", lng)).
		SetQueryParam("format", "jsonv2").
		SetResult(&response).
		Get("")
	if err != nil {
		c.logger.Warn("geocode call failed", zap.Error(err))
		return "", fmt.Errorf("failed to call geocoder: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("geocoder returned error", zap.Int("status_code", resp.StatusCode()))
		return "", fmt.Errorf("geocoder status %d", resp.StatusCode())
	}
	if response.DisplayName == "" {
		return "", fmt.Errorf("geocoder returned empty place name")
	}

	if c.kv != nil {
		_ = c.kv.Set(ctx, cacheKey, response.DisplayName, c.cacheTTL)
	}
	return response.DisplayName, nil
}
