// Package recognizer 识别编排器。
// 驱动 采样 → 解复用 → 主引擎识别 → 付费引擎降级 → 中文元数据解析 → 歌词
// 的完整状态机，全局同一时刻只有一个活跃会话。
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/longhaiqwe/radioapp/internal/catalog"
	"github.com/longhaiqwe/radioapp/internal/config"
	"github.com/longhaiqwe/radioapp/internal/credits"
	"github.com/longhaiqwe/radioapp/internal/fingerprint"
	"github.com/longhaiqwe/radioapp/internal/logger"
	"github.com/longhaiqwe/radioapp/internal/lyrics"
	"github.com/longhaiqwe/radioapp/internal/mpegts"
	"github.com/longhaiqwe/radioapp/internal/resolver"
	"github.com/longhaiqwe/radioapp/internal/sampler"
	"github.com/longhaiqwe/radioapp/internal/similar"
)

// 会话错误分类。调用方用 errors.Is 区分可重试和终止性失败。
var (
	// ErrNoActiveStream 没有可识别的电台流，立即终止。
	ErrNoActiveStream = errors.New("当前没有正在播放的电台流")
	// ErrDecodeFailed 解复用没有产出可用音频，可重试。
	ErrDecodeFailed = errors.New("未能从采样数据中提取音频")
	// ErrNoMatch 所有可用引擎都未识别出歌曲。
	ErrNoMatch = errors.New("未识别出歌曲")
	// ErrNoCredits 付费识别点数余额为零。
	ErrNoCredits = errors.New("识别点数已用完")
	// ErrNotEntitled 当前套餐不包含付费识别。
	ErrNotEntitled = errors.New("当前套餐不支持付费识别")
	// ErrFallbackDeclined 用户拒绝了付费识别。
	ErrFallbackDeclined = errors.New("已取消付费识别")
	// ErrSessionSuperseded 会话被更新的识别请求取代，结果作废。
	ErrSessionSuperseded = errors.New("识别会话已被新请求取代")
)

// 进度阶段，通过 OnProgress 上报。
const (
	StageCapturing = "capturing"
	StageMatching  = "matching"
	StageResolving = "resolving"
)

// Result 一次成功识别的最终结果。
type Result struct {
	SessionID string
	Title     string
	Artist    string
	Album     string
	// ArtworkURL 封面图地址，可能为空。
	ArtworkURL  string
	ReleaseDate time.Time
	// Source 命中结果的引擎名。
	Source string
	// Offset 采样开始时刻在歌曲内的估计位置（秒），已含引擎延迟修正。
	Offset float64
	// CapturedAt 采样开始的墙钟时间，Position 以此为基准外推。
	CapturedAt time.Time
	// RawLRC 原始歌词文本，未找到时为空。
	RawLRC string
	Lyrics []lyrics.Line
}

// Position 返回 now 时刻歌曲内的估计播放位置（秒）。
func (r *Result) Position(now time.Time) float64 {
	return r.Offset + now.Sub(r.CapturedAt).Seconds()
}

// Options 编排器依赖。Secondary、Ledger、ITunes 可为 nil，对应功能降级。
type Options struct {
	Sampler   *sampler.Sampler
	Primary   fingerprint.Matcher
	Secondary fingerprint.Matcher
	Resolver  *resolver.Resolver
	Ledger    credits.Ledger
	ITunes    *catalog.ITunesClient
	Offsets   config.OffsetsConfig
	// Entitled 当前套餐是否包含付费识别。
	Entitled bool
	// AutoConfirmFallback 主引擎未命中时自动发起付费识别，不等待确认。
	AutoConfirmFallback bool
}

// Recognizer 识别编排器。并发安全；新会话自动取消旧会话。
type Recognizer struct {
	sampler   *sampler.Sampler
	primary   fingerprint.Matcher
	secondary fingerprint.Matcher
	resolver  *resolver.Resolver
	ledger    credits.Ledger
	itunes    *catalog.ITunesClient
	offsets   config.OffsetsConfig

	sm         *StateMachine
	onProgress func(stage string)

	mu          sync.Mutex
	generation  uint64
	cancel      context.CancelFunc
	decisionCh  chan bool
	entitled    bool
	autoConfirm bool
}

// New 创建编排器。
func New(opts Options) (*Recognizer, error) {
	if opts.Sampler == nil {
		return nil, fmt.Errorf("必须提供采样器")
	}
	if opts.Primary == nil {
		return nil, fmt.Errorf("必须提供主识别引擎")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("必须提供元数据解析器")
	}
	return &Recognizer{
		sampler:     opts.Sampler,
		primary:     opts.Primary,
		secondary:   opts.Secondary,
		resolver:    opts.Resolver,
		ledger:      opts.Ledger,
		itunes:      opts.ITunes,
		offsets:     opts.Offsets,
		sm:          NewStateMachine(),
		entitled:    opts.Entitled,
		autoConfirm: opts.AutoConfirmFallback,
	}, nil
}

// OnProgress 注册阶段进度回调，在回调里不要做阻塞操作。
func (r *Recognizer) OnProgress(fn func(stage string)) {
	r.mu.Lock()
	r.onProgress = fn
	r.mu.Unlock()
}

// OnStateChange 注册状态机变化回调。
func (r *Recognizer) OnStateChange(fn func(from, to State)) {
	r.sm.SetOnChange(fn)
}

// State 返回当前会话状态。
func (r *Recognizer) State() State {
	return r.sm.Current()
}

// SetEntitled 更新付费识别的套餐授权，由订阅模块在状态变化时调用。
func (r *Recognizer) SetEntitled(entitled bool) {
	r.mu.Lock()
	r.entitled = entitled
	r.mu.Unlock()
}

// Cancel 取消进行中的识别会话（若有）。
func (r *Recognizer) Cancel() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.sm.ForceIdle()
}

// ConfirmFallback 对 AwaitingFallbackDecision 状态作出应答。
// accept 为 true 时发起付费识别，false 时会话以 ErrFallbackDeclined 终止。
// 不在等待状态时调用是无害的空操作。
func (r *Recognizer) ConfirmFallback(accept bool) {
	r.mu.Lock()
	ch := r.decisionCh
	r.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- accept:
	default:
	}
}

// Recognize 对 streamURL 执行一次完整识别，阻塞直到完成、失败或被取消。
// 再次调用会取消前一个会话；被取代的会话返回 ErrSessionSuperseded。
func (r *Recognizer) Recognize(ctx context.Context, streamURL string) (*Result, error) {
	if streamURL == "" {
		return nil, ErrNoActiveStream
	}

	gen, sessCtx, cancel := r.beginSession(ctx)
	defer cancel()

	sessionID := uuid.NewString()
	logger.Infof("[recognizer] 开始识别会话 %s - url=%s", sessionID, streamURL)

	// 采样
	r.sm.ForceIdle()
	r.sm.Transition(StateCapturing)
	r.reportProgress(StageCapturing)

	capturedAt := time.Now()
	smp, err := r.sampler.Sample(sessCtx, streamURL)
	if err != nil {
		return nil, r.fail(gen, fmt.Errorf("采样失败: %w", err))
	}

	// 解复用
	audio := smp.Data
	if smp.Kind == sampler.KindTransportStream {
		r.sm.Transition(StateDemuxing)
		audio = mpegts.ExtractAudio(smp.Data)
		if len(audio) == 0 {
			return nil, r.fail(gen, ErrDecodeFailed)
		}
	}

	// 主引擎识别
	r.sm.Transition(StatePrimaryMatching)
	r.reportProgress(StageMatching)

	item, source, err := r.matchWithFallback(sessCtx, gen, audio, smp.HLS)
	if err != nil {
		if errors.Is(err, ErrSessionSuperseded) {
			return nil, err
		}
		return nil, r.fail(gen, err)
	}
	if r.isStale(gen) {
		return nil, ErrSessionSuperseded
	}

	r.sm.Transition(StateMatched)
	logger.Infof("[recognizer] 识别命中 (%s): %s - %s offset=%.1fs", source, item.Title, item.Artist, item.Offset)

	result := &Result{
		SessionID:   sessionID,
		Title:       item.Title,
		Artist:      item.Artist,
		Album:       item.Album,
		ArtworkURL:  item.ArtworkURL,
		ReleaseDate: item.ReleaseDate,
		Source:      source,
		Offset:      item.Offset + r.offsetCorrection(source, smp.HLS),
		CapturedAt:  capturedAt,
	}
	if result.Offset < 0 {
		result.Offset = 0
	}

	// 元数据解析与歌词获取都不影响会话成败
	r.sm.Transition(StateResolvingMetadata)
	r.reportProgress(StageResolving)
	r.enrich(sessCtx, result, item)

	r.sm.Transition(StateFetchingLyrics)
	if lrc, ok := r.resolver.FetchLyrics(sessCtx, result.Title, result.Artist); ok {
		result.RawLRC = lrc
		result.Lyrics = lyrics.Parse(lrc)
	}

	if r.isStale(gen) {
		return nil, ErrSessionSuperseded
	}
	r.sm.Transition(StateDone)
	logger.Infof("[recognizer] 会话 %s 完成: %s - %s", sessionID, result.Title, result.Artist)
	return result, nil
}

// matchWithFallback 先走主引擎，未命中且具备条件时降级到付费副引擎。
// 返回选中的结果条目和来源引擎名。
func (r *Recognizer) matchWithFallback(ctx context.Context, gen uint64, audio []byte, hls bool) (fingerprint.MediaItem, string, error) {
	items, err := r.primary.Match(ctx, audio)
	if err == nil && len(items) == 0 {
		// 实现方可能用空列表而非 ErrNoMatch 表示未命中
		err = fingerprint.ErrNoMatch
	}
	if err == nil {
		return pickCandidate(items), r.primary.Name(), nil
	}
	if !errors.Is(err, fingerprint.ErrNoMatch) {
		return fingerprint.MediaItem{}, "", fmt.Errorf("主识别引擎失败: %w", err)
	}

	logger.Info("[recognizer] 主引擎未命中，评估付费识别条件")
	if err := r.fallbackEligible(); err != nil {
		return fingerprint.MediaItem{}, "", err
	}

	if !r.sm.Transition(StateAwaitingFallbackDecision) {
		return fingerprint.MediaItem{}, "", ErrSessionSuperseded
	}
	accept, err := r.awaitFallbackDecision(ctx)
	if err != nil {
		return fingerprint.MediaItem{}, "", err
	}
	if !accept {
		return fingerprint.MediaItem{}, "", ErrFallbackDeclined
	}
	if r.isStale(gen) {
		return fingerprint.MediaItem{}, "", ErrSessionSuperseded
	}

	// 点数在发起请求时扣减，识别失败也不退还
	if err := r.ledger.ConsumeOne(); err != nil {
		if errors.Is(err, credits.ErrInsufficient) {
			return fingerprint.MediaItem{}, "", ErrNoCredits
		}
		return fingerprint.MediaItem{}, "", fmt.Errorf("扣减识别点数失败: %w", err)
	}

	r.sm.Transition(StateFallbackMatching)
	items, err = r.secondary.Match(ctx, audio)
	if err != nil {
		if errors.Is(err, fingerprint.ErrNoMatch) {
			return fingerprint.MediaItem{}, "", ErrNoMatch
		}
		return fingerprint.MediaItem{}, "", fmt.Errorf("付费识别引擎失败: %w", err)
	}
	if len(items) == 0 {
		return fingerprint.MediaItem{}, "", ErrNoMatch
	}
	return pickCandidate(items), r.secondary.Name(), nil
}

// fallbackEligible 检查付费降级是否可用。
// 不可用时返回对应的终止性错误。
func (r *Recognizer) fallbackEligible() error {
	if r.secondary == nil || r.ledger == nil {
		return ErrNoMatch
	}

	r.mu.Lock()
	entitled := r.entitled
	r.mu.Unlock()
	if !entitled {
		return ErrNotEntitled
	}

	balance, err := r.ledger.Balance()
	if err != nil {
		logger.Warnf("[recognizer] 查询点数余额失败: %v", err)
		return ErrNoMatch
	}
	if balance <= 0 {
		return ErrNoCredits
	}
	return nil
}

// awaitFallbackDecision 等待调用方确认或取消。
// autoConfirm 开启时立即放行，这是整条链路上唯一等待外部输入的挂起点。
func (r *Recognizer) awaitFallbackDecision(ctx context.Context) (bool, error) {
	r.mu.Lock()
	auto := r.autoConfirm
	ch := r.decisionCh
	r.mu.Unlock()

	if auto {
		return true, nil
	}
	select {
	case accept := <-ch:
		return accept, nil
	case <-ctx.Done():
		return false, ErrSessionSuperseded
	}
}

// enrich 解析中文元数据并补全发行日期，失败只记日志。
func (r *Recognizer) enrich(ctx context.Context, result *Result, item fingerprint.MediaItem) {
	// 引擎返回的繁体/带版本后缀的标题先做本地归一
	result.Title = similar.CleanTitle(similar.ToSimplified(result.Title))
	result.Artist = similar.ToSimplified(result.Artist)

	// 只有拼音/外文形式才需要走目录反查
	if similar.IsRomanizedOrLatin(result.Title) || similar.IsRomanizedOrLatin(result.Artist) {
		if title, artist, ok := r.resolver.ResolveChineseMetadata(ctx, result.Title, result.Artist); ok {
			result.Title = title
			result.Artist = artist
		}
	}

	if result.ReleaseDate.IsZero() && item.CatalogID != "" && r.itunes != nil {
		if t, err := r.itunes.LookupReleaseDate(ctx, item.CatalogID); err == nil {
			result.ReleaseDate = t
		} else {
			logger.Debugf("[recognizer] 补全发行日期失败: %v", err)
		}
	}
}

// offsetCorrection 按引擎和流类型返回经验修正常量（秒）。
// HLS 分段有固定的分发延迟，不同引擎的时间戳偏差也不同。
func (r *Recognizer) offsetCorrection(source string, hls bool) float64 {
	pair := r.offsets.Primary
	if r.secondary != nil && source == r.secondary.Name() {
		pair = r.offsets.Secondary
	}
	if hls {
		return pair.HLS
	}
	return pair.Direct
}

// beginSession 取消旧会话并登记新会话，返回代号和可取消的上下文。
func (r *Recognizer) beginSession(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.decisionCh = make(chan bool, 1)
	return gen, ctx, cancel
}

// isStale 判断 gen 对应的会话是否已被新会话取代。
func (r *Recognizer) isStale(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation != gen
}

// fail 把会话置为 Failed 并返回错误；被取代的会话不改状态。
func (r *Recognizer) fail(gen uint64, err error) error {
	if r.isStale(gen) {
		return ErrSessionSuperseded
	}
	r.sm.Transition(StateFailed)
	logger.Warnf("[recognizer] 会话失败: %v", err)
	return err
}

func (r *Recognizer) reportProgress(stage string) {
	r.mu.Lock()
	fn := r.onProgress
	r.mu.Unlock()
	if fn != nil {
		fn(stage)
	}
}

// 现场/小样版本的标题特征
var liveDemoRe = regexp.MustCompile(`(?i)[(\[（]\s*(live|现场|演唱会|demo|试听|小样)|[-\s]live\s*$`)

// pickCandidate 返回首个录音室版本的候选，全是现场/小样时退回第一条。
func pickCandidate(items []fingerprint.MediaItem) fingerprint.MediaItem {
	for _, item := range items {
		if !liveDemoRe.MatchString(item.Title) {
			return item
		}
	}
	return items[0]
}
