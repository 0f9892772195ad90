// Package fingerprint 声纹识别引擎。
// 定义主/副识别引擎的接口契约，并提供 ACRCloud 与腾讯云 AME 两个云端实现。
package fingerprint

import (
	"context"
	"errors"
	"time"
)

// ErrNoMatch 引擎正常工作但曲库中没有匹配的歌曲。
// 与网络/服务错误区分开，只有 ErrNoMatch 会触发降级链的下一级。
var ErrNoMatch = errors.New("曲库未匹配到歌曲")

// MediaItem 一条识别结果。
type MediaItem struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
	// CatalogID 外部曲库 ID，用于补全发行日期，可能为空。
	CatalogID string
	// Offset 引擎报告的样本在歌曲内的位置（秒）。
	Offset      float64
	ReleaseDate time.Time
}

// Matcher 声纹识别引擎。
// audio 为裸的基本流音频（ADTS/AAC 或 MP3），不是传输流容器。
// 未命中返回 ErrNoMatch，其余错误视为传输层失败。
type Matcher interface {
	Match(ctx context.Context, audio []byte) ([]MediaItem, error)
	Name() string
}
