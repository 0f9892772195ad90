package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

// QQClient QQ 音乐客户端，走公开的 soso 搜索接口。
type QQClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewQQClient 创建 QQ 音乐客户端。
func NewQQClient(baseURL string) *QQClient {
	if baseURL == "" {
		baseURL = "https://c.y.qq.com"
	}
	return &QQClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// qqSearchResponse 搜索接口响应结构。
type qqSearchResponse struct {
	Data struct {
		Song struct {
			List []struct {
				SongMID  string `json:"songmid"`
				SongName string `json:"songname"`
				Singer   []struct {
					Name string `json:"name"`
				} `json:"singer"`
				AlbumName string `json:"albumname"`
			} `json:"list"`
		} `json:"song"`
	} `json:"data"`
}

// qqLyricResponse 歌词接口响应结构。
type qqLyricResponse struct {
	Lyric string `json:"lyric"`
}

// Search 实现 Provider 接口：根据关键词搜索歌曲。
func (c *QQClient) Search(ctx context.Context, keyword string, limit int) ([]Song, error) {
	if limit <= 0 {
		limit = 5
	}

	apiURL := fmt.Sprintf("%s/soso/fcgi-bin/client_search_cp?aggr=1&cr=1&flag_qc=0&p=1&n=%d&w=%s&format=json",
		c.baseURL, limit, url.QueryEscape(keyword))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 QQ 音乐搜索失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("QQ 音乐搜索返回错误状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var result qqSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	songs := make([]Song, 0, len(result.Data.Song.List))
	for _, item := range result.Data.Song.List {
		var artists []string
		for _, s := range item.Singer {
			artists = append(artists, s.Name)
		}
		songs = append(songs, Song{
			ID:     item.SongMID,
			Name:   item.SongName,
			Artist: joinArtists(artists),
			Album:  item.AlbumName,
		})
	}

	logger.Debugf("[qq] 搜索 '%s' 返回 %d 首歌曲", keyword, len(songs))
	return songs, nil
}

// FetchLyric 实现 Provider 接口：按 songmid 获取 LRC 歌词。
func (c *QQClient) FetchLyric(ctx context.Context, songID string) (string, error) {
	apiURL := fmt.Sprintf("%s/lyric/fcgi-bin/fcg_query_lyric_new.fcg?songmid=%s&format=json&nobase64=1",
		c.baseURL, url.QueryEscape(songID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	// 歌词接口校验 Referer
	req.Header.Set("Referer", "https://y.qq.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求 QQ 音乐歌词失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("QQ 音乐歌词返回错误状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}

	var result qqLyricResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if result.Lyric == "" {
		return "", fmt.Errorf("歌曲 %s 无歌词", songID)
	}
	return result.Lyric, nil
}

// ProviderName 实现 Provider 接口。
func (c *QQClient) ProviderName() string {
	return "qq"
}
