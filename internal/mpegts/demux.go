// Package mpegts 实现一个最小化的 MPEG-TS 解包器，
// 从电台 HLS 分片里还原出 ADTS 封装的 AAC 裸流。
// 不做通用容器解析，只为识曲采样服务。
package mpegts

import (
	"sort"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

const (
	packetSize = 188
	syncByte   = 0x47

	// 控制 PID：PAT、SDT、空包
	pidPAT  = 0x0000
	pidSDT  = 0x0011
	pidNull = 0x1FFF

	// 候选 PID 数量与 ADTS 探测的包数上限
	candidatePIDs   = 5
	probePacketsMax = 20

	// 清洗结果低于此字节数时考虑回退到原始 payload
	minSanitizedBytes = 100
)

// ExtractAudio 从 TS 数据中解包出 ADTS 音频裸流。
// 永不报错：解析失败时返回能提取到的部分，最差返回空切片，
// 由调用方把空结果当作"无可用音频"处理。
func ExtractAudio(tsData []byte) []byte {
	if len(tsData) < packetSize {
		return nil
	}

	pid, ok := findAudioPID(tsData)
	if !ok {
		logger.Warn("[mpegts] 未找到有效 PID")
		return nil
	}
	logger.Debugf("[mpegts] 选定音频 PID: %d", pid)

	payload := assemblePayload(tsData, pid)
	if len(payload) == 0 {
		return nil
	}

	audio := stripPESHeaders(payload)

	// PES 解析一无所获时退回原始 payload 再试
	if len(audio) == 0 {
		audio = payload
	}

	sanitized := sanitizeADTS(audio)
	if len(sanitized) < minSanitizedBytes && hasADTSSync(payload) {
		// 清洗过严时宁可交出未清洗的 payload，识别引擎通常能容忍少量噪声
		logger.Debugf("[mpegts] 清洗结果过短 (%d bytes)，回退原始 payload", len(sanitized))
		return payload
	}

	logger.Debugf("[mpegts] 提取 AAC 数据 %d bytes (TS 输入 %d bytes)", len(sanitized), len(tsData))
	return sanitized
}

// findAudioPID 统计各 PID 的包数，从前 5 名中选出 payload
// 含 ADTS 同步字的那个；都不含时退回包数最多的 PID。
func findAudioPID(tsData []byte) (int, bool) {
	counts := make(map[int]int)

	offset := 0
	for offset+packetSize <= len(tsData) {
		if tsData[offset] != syncByte {
			// 失步时逐字节前移重新同步
			offset++
			continue
		}
		pid := (int(tsData[offset+1])&0x1F)<<8 | int(tsData[offset+2])
		if pid != pidPAT && pid != pidSDT && pid != pidNull {
			counts[pid]++
		}
		offset += packetSize
	}

	if len(counts) == 0 {
		return 0, false
	}

	pids := make([]int, 0, len(counts))
	for pid := range counts {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool {
		if counts[pids[i]] != counts[pids[j]] {
			return counts[pids[i]] > counts[pids[j]]
		}
		return pids[i] < pids[j]
	})
	if len(pids) > candidatePIDs {
		pids = pids[:candidatePIDs]
	}

	for _, pid := range pids {
		if probeADTS(tsData, pid) {
			return pid, true
		}
	}

	// 多音轨或无法探测时，按包数最多的 PID 盲选
	return pids[0], true
}

// probeADTS 检查某 PID 前 20 个包的 payload 中是否出现 ADTS 同步字。
func probeADTS(tsData []byte, pid int) bool {
	offset := 0
	inspected := 0
	for offset+packetSize <= len(tsData) && inspected < probePacketsMax {
		if tsData[offset] != syncByte {
			offset++
			continue
		}
		p := (int(tsData[offset+1])&0x1F)<<8 | int(tsData[offset+2])
		if p == pid {
			inspected++
			payload := packetPayload(tsData[offset : offset+packetSize])
			if hasADTSSync(payload) {
				return true
			}
		}
		offset += packetSize
	}
	return false
}

// packetPayload 返回单个 TS 包的 payload 部分，处理 adaptation field。
func packetPayload(pkt []byte) []byte {
	afc := (pkt[3] & 0x30) >> 4
	payloadOffset := 4

	if afc == 2 || afc == 3 {
		adaptationLength := int(pkt[4])
		payloadOffset += 1 + adaptationLength
	}

	if (afc == 1 || afc == 3) && payloadOffset < packetSize {
		return pkt[payloadOffset:]
	}
	return nil
}

// assemblePayload 把选定 PID 的所有包 payload 按序拼接。
func assemblePayload(tsData []byte, audioPID int) []byte {
	var payload []byte

	offset := 0
	for offset+packetSize <= len(tsData) {
		if tsData[offset] != syncByte {
			offset++
			continue
		}
		pid := (int(tsData[offset+1])&0x1F)<<8 | int(tsData[offset+2])
		if pid == audioPID {
			payload = append(payload, packetPayload(tsData[offset:offset+packetSize])...)
		}
		offset += packetSize
	}
	return payload
}

// stripPESHeaders 剥离 PES 头，提取 ES 数据。
// payload 是 PES 包序列，每个以 00 00 01 起始码开头；
// 音频 stream id 为 0xC0-0xDF 或 0xBD（Private Stream 1）。
func stripPESHeaders(payload []byte) []byte {
	var audio []byte

	cursor := 0
	for cursor+6 < len(payload) {
		if payload[cursor] == 0x00 && payload[cursor+1] == 0x00 && payload[cursor+2] == 0x01 {
			streamID := payload[cursor+3]

			if (streamID >= 0xC0 && streamID <= 0xDF) || streamID == 0xBD {
				if cursor+9 < len(payload) {
					// 固定头 6 字节 + 标志 2 字节 + 头长度 1 字节，
					// 再跳过 header data length 指定的可选头
					headerDataLen := int(payload[cursor+8])
					dataStart := cursor + 6 + 3 + headerDataLen

					// ES 数据持续到下一个起始码
					nextStart := len(payload)
					for scan := dataStart; scan+3 < len(payload); scan++ {
						if payload[scan] == 0x00 && payload[scan+1] == 0x00 && payload[scan+2] == 0x01 {
							nextStart = scan
							break
						}
					}

					if dataStart >= 0 && dataStart < nextStart && nextStart <= len(payload) {
						audio = append(audio, payload[dataStart:nextStart]...)
					}

					cursor = nextStart
					continue
				}
			}
		}
		cursor++
	}
	return audio
}

// sanitizeADTS 按帧重新扫描提取结果，只保留长度字段自洽的 ADTS 帧：
// 帧声明长度必须落在缓冲区内，且下一个同步字恰好出现在计算出的偏移处。
// 不满足的按假同步处理，向前跳一个字节继续。
func sanitizeADTS(data []byte) []byte {
	var frames []byte

	i := 0
	for i+7 <= len(data) {
		if data[i] != 0xFF || data[i+1]&0xF0 != 0xF0 {
			i++
			continue
		}

		// ADTS 帧长：13 bit，跨 header 第 3-5 字节
		frameLen := (int(data[i+3])&0x03)<<11 | int(data[i+4])<<3 | int(data[i+5])>>5
		if frameLen < 7 || i+frameLen > len(data) {
			i++
			continue
		}

		// 帧尾必须正好衔接下一个同步字（缓冲区末帧除外）
		if i+frameLen+1 < len(data) {
			if data[i+frameLen] != 0xFF || data[i+frameLen+1]&0xF0 != 0xF0 {
				i++
				continue
			}
		}

		frames = append(frames, data[i:i+frameLen]...)
		i += frameLen
	}
	return frames
}

// hasADTSSync 检查前 1000 字节内是否出现 ADTS 同步字（12 bit 全 1）。
func hasADTSSync(data []byte) bool {
	limit := len(data) - 1
	if limit > 1000 {
		limit = 1000
	}
	for i := 0; i < limit; i++ {
		if data[i] == 0xFF && data[i+1]&0xF0 == 0xF0 {
			return true
		}
	}
	return false
}
