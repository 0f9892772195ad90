package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ITunesClient iTunes 查询客户端，用于在主指纹引擎
// 未返回发行日期时按目录 ID 补全。
type ITunesClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewITunesClient 创建 iTunes 查询客户端。
func NewITunesClient(baseURL string) *ITunesClient {
	if baseURL == "" {
		baseURL = "https://itunes.apple.com"
	}
	return &ITunesClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// LookupReleaseDate 按目录 ID 查询歌曲发行日期。
func (c *ITunesClient) LookupReleaseDate(ctx context.Context, catalogID string) (time.Time, error) {
	apiURL := fmt.Sprintf("%s/lookup?id=%s&country=CN", c.baseURL, catalogID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("请求 iTunes 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("iTunes 返回错误状态码: %d", resp.StatusCode)
	}

	var result struct {
		ResultCount int `json:"resultCount"`
		Results     []struct {
			ReleaseDate string `json:"releaseDate"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return time.Time{}, fmt.Errorf("解析响应失败: %w", err)
	}

	if result.ResultCount == 0 || len(result.Results) == 0 || result.Results[0].ReleaseDate == "" {
		return time.Time{}, fmt.Errorf("目录 ID %s 无发行日期", catalogID)
	}

	t, err := time.Parse(time.RFC3339, result.Results[0].ReleaseDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("发行日期格式无效: %w", err)
	}
	return t, nil
}
