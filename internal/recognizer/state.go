package recognizer

import (
	"sync"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

// State 表示识别会话的当前阶段。
type State int

const (
	// StateIdle：空闲，没有进行中的识别。
	StateIdle State = iota
	// StateCapturing：正在从电台流采样音频。
	StateCapturing
	// StateDemuxing：正在从传输流容器中提取基本流音频。
	StateDemuxing
	// StatePrimaryMatching：样本已提交主识别引擎。
	StatePrimaryMatching
	// StateAwaitingFallbackDecision：主引擎未命中，等待确认是否使用付费引擎。
	StateAwaitingFallbackDecision
	// StateFallbackMatching：样本已提交付费副识别引擎。
	StateFallbackMatching
	// StateMatched：某个引擎返回了识别结果。
	StateMatched
	// StateResolvingMetadata：正在解析中文元数据。
	StateResolvingMetadata
	// StateFetchingLyrics：正在定位并下载歌词。
	StateFetchingLyrics
	// StateDone：会话完成，结果可用。
	StateDone
	// StateFailed：会话以错误终止。
	StateFailed
)

var stateNames = [...]string{
	"Idle",
	"Capturing",
	"Demuxing",
	"PrimaryMatching",
	"AwaitingFallbackDecision",
	"FallbackMatching",
	"Matched",
	"ResolvingMetadata",
	"FetchingLyrics",
	"Done",
	"Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// StateMachine 管理线程安全的状态转换。
type StateMachine struct {
	mu       sync.RWMutex
	current  State
	onChange func(from, to State)
}

// NewStateMachine 创建一个初始状态为 Idle 的状态机。
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateIdle}
}

// SetOnChange 注册状态变化时的回调函数。
func (sm *StateMachine) SetOnChange(fn func(from, to State)) {
	sm.mu.Lock()
	sm.onChange = fn
	sm.mu.Unlock()
}

// Current 返回当前状态。
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换状态。只有合法的转换才会生效，
// 任何状态都可以转换到 Idle（用于取消或错误恢复）。
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.current, to) {
		logger.Warnf("[state] 非法转换 %s → %s", sm.current, to)
		return false
	}

	from := sm.current
	sm.current = to
	logger.Debugf("[state] %s → %s", from, to)

	if sm.onChange != nil {
		sm.onChange(from, to)
	}
	return true
}

// ForceIdle 无条件重置状态为 Idle。
func (sm *StateMachine) ForceIdle() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.current
	sm.current = StateIdle
	if from != StateIdle {
		logger.Debugf("[state] 强制重置 %s → Idle", from)
		if sm.onChange != nil {
			sm.onChange(from, StateIdle)
		}
	}
}

// validTransition 检查状态转换是否合法。
func validTransition(from, to State) bool {
	// 始终允许重置到 Idle（用于取消/错误恢复）
	if to == StateIdle {
		return true
	}
	// 任何进行中的阶段都可能失败
	if to == StateFailed {
		return from != StateIdle && from != StateDone
	}
	switch from {
	case StateIdle:
		return to == StateCapturing
	case StateCapturing:
		// 基本流音频无需解复用，可直接进入识别
		return to == StateDemuxing || to == StatePrimaryMatching
	case StateDemuxing:
		return to == StatePrimaryMatching
	case StatePrimaryMatching:
		return to == StateMatched || to == StateAwaitingFallbackDecision
	case StateAwaitingFallbackDecision:
		return to == StateFallbackMatching
	case StateFallbackMatching:
		return to == StateMatched
	case StateMatched:
		return to == StateResolvingMetadata
	case StateResolvingMetadata:
		return to == StateFetchingLyrics
	case StateFetchingLyrics:
		return to == StateDone
	}
	return false
}
