// Package catalog 封装歌曲目录搜索后端（QQ 音乐、网易云）
// 和歌词获取接口。识曲核心用它们把罗马化的识别结果
// 还原成权威的中文元数据。
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Song 表示一条目录搜索结果。
type Song struct {
	ID     string // 后端内的歌曲标识（QQ 为 songmid，网易云为数字 id）
	Name   string // 歌曲名
	Artist string // 歌手名（多歌手以空格拼接）
	Album  string // 专辑名
}

// Provider 定义目录搜索后端接口。
type Provider interface {
	// Search 根据关键词搜索歌曲。
	Search(ctx context.Context, keyword string, limit int) ([]Song, error)

	// FetchLyric 获取歌曲的 LRC 歌词文本。
	FetchLyric(ctx context.Context, songID string) (string, error)

	// ProviderName 返回后端名称（如 "qq"、"netease"）。
	ProviderName() string
}

// String 实现 Stringer 接口。
func (s Song) String() string {
	return fmt.Sprintf("%s - %s", s.Name, s.Artist)
}

// joinArtists 把多歌手名拼接为一个字符串。
func joinArtists(names []string) string {
	var nonEmpty []string
	for _, n := range names {
		if n != "" {
			nonEmpty = append(nonEmpty, n)
		}
	}
	return strings.Join(nonEmpty, " ")
}
