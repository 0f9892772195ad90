package sampler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

// isHLSURL 判断是否为 HLS 播放列表地址。
func isHLSURL(streamURL string) bool {
	return strings.Contains(strings.ToLower(streamURL), "m3u8")
}

// sampleHLS 下载播放列表，解析出媒体分片并按序下载拼接，
// 收满目标字节数或分片用尽时结束。
func (s *Sampler) sampleHLS(ctx context.Context, playlistURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.HardTimeoutSeconds+10)*time.Second)
	defer cancel()

	segments, err := s.fetchPlaylist(ctx, playlistURL, true)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: 播放列表中未找到媒体分片", ErrInsufficientData)
	}

	max := s.cfg.HLSSegments
	if len(segments) < max {
		max = len(segments)
	}
	logger.Infof("[sampler] 播放列表包含 %d 个分片，下载前 %d 个", len(segments), max)

	target := s.targetBytes()
	var accumulated []byte
	for _, segURL := range segments[:max] {
		if len(accumulated) >= target {
			break
		}
		data, err := s.fetchBytes(ctx, segURL)
		if err != nil {
			logger.Warnf("[sampler] 分片下载失败: %v", err)
			// 已有部分数据时尝试用现有数据识别
			if len(accumulated) >= s.cfg.MinViableBytes {
				break
			}
			return nil, fmt.Errorf("分片下载失败: %w", err)
		}
		accumulated = append(accumulated, data...)
	}

	if len(accumulated) < s.cfg.MinViableBytes {
		return nil, fmt.Errorf("%w: 分片合计仅 %d bytes", ErrInsufficientData, len(accumulated))
	}

	logger.Infof("[sampler] HLS 采集完成 (%d bytes)", len(accumulated))
	return accumulated, nil
}

// fetchPlaylist 下载并解析 m3u8，返回媒体分片 URL 列表。
// 遇到嵌套的多码率列表时跟进一层（只取第一个子列表）。
func (s *Sampler) fetchPlaylist(ctx context.Context, playlistURL string, followNested bool) ([]string, error) {
	body, err := s.fetchBytes(ctx, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("下载播放列表失败: %w", err)
	}

	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("播放列表地址无效: %w", err)
	}

	var segments []string
	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		resolved := resolveURI(base, trimmed)
		if resolved == "" {
			continue
		}

		// 嵌套 m3u8（多码率列表）：跟进第一个子列表
		if isHLSURL(resolved) {
			if followNested {
				logger.Debugf("[sampler] 发现嵌套播放列表: %s", resolved)
				return s.fetchPlaylist(ctx, resolved, false)
			}
			continue
		}

		segments = append(segments, resolved)
	}
	return segments, nil
}

// resolveURI 把播放列表中的分片地址解析为绝对 URL，
// 支持绝对地址、根路径和相对路径三种写法。
func resolveURI(base *url.URL, uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// fetchBytes 一次性下载 URL 内容。
func (s *Sampler) fetchBytes(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("返回错误状态码: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
