package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

// neteaseUA 网易云 web 接口要求浏览器 UA。
const neteaseUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NeteaseClient 网易云音乐客户端，走公开的 web 搜索接口。
type NeteaseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNeteaseClient 创建网易云音乐客户端。
func NewNeteaseClient(baseURL string) *NeteaseClient {
	if baseURL == "" {
		baseURL = "http://music.163.com"
	}
	return &NeteaseClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// neteaseSearchResponse 搜索接口响应结构。
type neteaseSearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
		} `json:"songs"`
	} `json:"result"`
}

// neteaseLyricResponse 歌词接口响应结构。
type neteaseLyricResponse struct {
	LRC struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

// doRequest 执行 HTTP 请求（附加 Referer 和浏览器 UA）。
func (c *NeteaseClient) doRequest(req *http.Request) (*http.Response, error) {
	req.Header.Set("Referer", c.baseURL)
	req.Header.Set("User-Agent", neteaseUA)
	return c.httpClient.Do(req)
}

// Search 实现 Provider 接口：根据关键词搜索歌曲。
func (c *NeteaseClient) Search(ctx context.Context, keyword string, limit int) ([]Song, error) {
	if limit <= 0 {
		limit = 5
	}

	apiURL := fmt.Sprintf("%s/api/search/get/web?s=%s&type=1&offset=0&total=true&limit=%d",
		c.baseURL, url.QueryEscape(keyword), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("请求网易云搜索失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("网易云搜索返回错误状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var result neteaseSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	songs := make([]Song, 0, len(result.Result.Songs))
	for _, item := range result.Result.Songs {
		var artists []string
		for _, a := range item.Artists {
			artists = append(artists, a.Name)
		}
		songs = append(songs, Song{
			ID:     strconv.FormatInt(item.ID, 10),
			Name:   item.Name,
			Artist: joinArtists(artists),
			Album:  item.Album.Name,
		})
	}

	logger.Debugf("[netease] 搜索 '%s' 返回 %d 首歌曲", keyword, len(songs))
	return songs, nil
}

// FetchLyric 实现 Provider 接口：按歌曲 id 获取 LRC 歌词。
func (c *NeteaseClient) FetchLyric(ctx context.Context, songID string) (string, error) {
	apiURL := fmt.Sprintf("%s/api/song/lyric?id=%s&lv=1&kv=1&tv=-1", c.baseURL, url.QueryEscape(songID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return "", fmt.Errorf("请求网易云歌词失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("网易云歌词返回错误状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}

	var result neteaseLyricResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if result.LRC.Lyric == "" {
		return "", fmt.Errorf("歌曲 %s 无歌词", songID)
	}
	return result.LRC.Lyric, nil
}

// ProviderName 实现 Provider 接口。
func (c *NeteaseClient) ProviderName() string {
	return "netease"
}
