// Package sampler 从电台流 URL 下载一小段音频用于指纹识别。
// 支持直连流（MP3/AAC）和 HLS 流（.m3u8）。
package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

// ErrInsufficientData 表示采样结束时收到的数据不足以识别。
var ErrInsufficientData = errors.New("采样数据不足以识别")

// Kind 表示采样结果的容器类型。
type Kind string

const (
	// KindElementaryAAC ADTS 封装的 AAC 裸流，可直接送入指纹引擎。
	KindElementaryAAC Kind = "elementary-aac"
	// KindTransportStream MPEG-TS 分片，需要先解包。
	KindTransportStream Kind = "transport-stream"
	// KindUnknown 无法判断的容器（常见于 MP3 直连流）。
	KindUnknown Kind = "unknown"
)

// Sample 一次采样的结果。交给编排器后不再修改。
type Sample struct {
	Data  []byte
	Kind  Kind
	HLS   bool      // 是否经由 HLS 播放列表采集
	Start time.Time // 采集开始时间
	End   time.Time // 采集结束时间
}

// Config 采样参数。
type Config struct {
	TargetSeconds      int // 目标采样时长（秒）
	HardTimeoutSeconds int // 硬超时（秒）
	BitrateKbps        int // 估算码率，用于换算目标字节数
	MinViableBytes     int // 低于此字节数视为失败
	HLSSegments        int // HLS 最多下载的分片数
}

// Sampler 流采样器。同一时刻只允许一个采样任务，
// 新任务启动时会取消并丢弃仍在进行的旧任务。
type Sampler struct {
	cfg    Config
	client *http.Client

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// New 创建采样器。
func New(cfg Config) *Sampler {
	if cfg.TargetSeconds <= 0 {
		cfg.TargetSeconds = 15
	}
	if cfg.HardTimeoutSeconds <= 0 {
		cfg.HardTimeoutSeconds = 12
	}
	if cfg.BitrateKbps <= 0 {
		cfg.BitrateKbps = 128
	}
	if cfg.MinViableBytes <= 0 {
		cfg.MinViableBytes = 1000
	}
	if cfg.HLSSegments <= 0 {
		cfg.HLSSegments = 3
	}
	return &Sampler{
		cfg: cfg,
		client: &http.Client{
			Timeout: 0, // 超时由每次采样的 context 控制
		},
	}
}

// targetBytes 目标字节数 = 时长 * 码率。
func (s *Sampler) targetBytes() int {
	return s.cfg.TargetSeconds * s.cfg.BitrateKbps * 1024 / 8
}

// Sample 从流 URL 采样一段音频。
// 收满目标字节数或硬超时到达时结束，先到者为准；
// 网络错误时若已收到最小可用字节数，仍返回部分数据。
func (s *Sampler) Sample(ctx context.Context, streamURL string) (*Sample, error) {
	// 取消上一个仍在进行的采样
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.cancelPrev = cancel
	s.mu.Unlock()
	defer cancel()

	start := time.Now()

	if isHLSURL(streamURL) {
		logger.Infof("[sampler] 检测到 HLS 流，开始解析播放列表: %s", streamURL)
		data, err := s.sampleHLS(ctx, streamURL)
		if err != nil {
			return nil, err
		}
		return &Sample{
			Data:  data,
			Kind:  sniffKind(data),
			HLS:   true,
			Start: start,
			End:   time.Now(),
		}, nil
	}

	logger.Infof("[sampler] 直连流，开始采集: %s", streamURL)
	data, err := s.sampleDirect(ctx, streamURL)
	if err != nil {
		return nil, err
	}
	return &Sample{
		Data:  data,
		Kind:  sniffKind(data),
		Start: start,
		End:   time.Now(),
	}, nil
}

// sampleDirect 对直连流做流式 GET，"收满字节"和"硬超时"赛跑。
func (s *Sampler) sampleDirect(ctx context.Context, streamURL string) ([]byte, error) {
	deadline := time.Duration(s.cfg.HardTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "audio/*")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("连接流失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("流返回错误状态码: %d", resp.StatusCode)
	}

	target := s.targetBytes()
	received := make([]byte, 0, target)
	buf := make([]byte, 16*1024)

	for len(received) < target {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			received = append(received, buf[:n]...)
		}
		if err != nil {
			// 超时/网络错误：已有最小可用数据时照样返回
			if len(received) >= s.cfg.MinViableBytes {
				logger.Infof("[sampler] 采集提前结束 (%d bytes): %v", len(received), err)
				return received, nil
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: 超时前仅收到 %d bytes", ErrInsufficientData, len(received))
			}
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: 流提前结束，仅收到 %d bytes", ErrInsufficientData, len(received))
			}
			return nil, fmt.Errorf("读取流失败: %w", err)
		}
	}

	logger.Infof("[sampler] 采集完成 (%d bytes)", len(received))
	return received, nil
}

// sniffKind 根据数据头部推断容器类型。
func sniffKind(data []byte) Kind {
	if len(data) > 2*tsPacketSize && data[0] == 0x47 && data[tsPacketSize] == 0x47 {
		return KindTransportStream
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xF0 == 0xF0 {
		return KindElementaryAAC
	}
	return KindUnknown
}

const tsPacketSize = 188
