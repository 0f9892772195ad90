// Package lyrics LRC 歌词解析与播放位置定位。
package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line 一行带时间戳的歌词，Time 为秒。
type Line struct {
	Time float64
	Text string
}

// 时间标签形如 [mm:ss.xx] 或 [mm:ss.xxx]
var timeTagRe = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\](.*)`)

// Parse 解析 LRC 文本为按时间升序的歌词行。
// 无时间标签的行和空歌词行被丢弃，解析器从不报错。
func Parse(lrc string) []Line {
	var lines []Line
	for _, raw := range strings.Split(lrc, "\n") {
		m := timeTagRe.FindStringSubmatch(raw)
		if m == nil {
			continue
		}

		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		frac, _ := strconv.Atoi(m[3])
		divider := 100.0
		if len(m[3]) == 3 {
			divider = 1000.0
		}

		text := strings.TrimSpace(m[4])
		if text == "" {
			continue
		}

		lines = append(lines, Line{
			Time: float64(minutes)*60 + float64(seconds) + float64(frac)/divider,
			Text: text,
		})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Time < lines[j].Time })
	return lines
}

// SyncOffset 用户手动微调的歌词同步量（秒）。
// 只影响展示时的行定位，不修改识别得到的播放位置。
type SyncOffset float64

// syncStep 每次微调的步长
const syncStep = 1.0

// Advance 歌词提前 1 秒。
func (o SyncOffset) Advance() SyncOffset { return o + syncStep }

// Delay 歌词延后 1 秒。
func (o SyncOffset) Delay() SyncOffset { return o - syncStep }

// PositionAt 返回 position（秒）对应的歌词行下标。
// position 早于首行时返回 -1。
func PositionAt(lines []Line, position float64, offset SyncOffset) int {
	adjusted := position + float64(offset)
	idx := -1
	for i, line := range lines {
		if line.Time <= adjusted {
			idx = i
		} else {
			break
		}
	}
	return idx
}
