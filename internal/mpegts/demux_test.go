package mpegts

import (
	"bytes"
	"testing"
)

// adtsFrame 构造一个长度字段自洽的 ADTS 帧，payload 填充 0xAA。
func adtsFrame(t *testing.T, frameLen int) []byte {
	t.Helper()
	if frameLen < 7 {
		t.Fatalf("frame length must be >= 7, got %d", frameLen)
	}
	frame := make([]byte, frameLen)
	frame[0] = 0xFF
	frame[1] = 0xF1 // MPEG-4, no CRC
	frame[2] = 0x50
	frame[3] = byte((frameLen >> 11) & 0x03)
	frame[4] = byte((frameLen >> 3) & 0xFF)
	frame[5] = byte((frameLen&0x07)<<5) | 0x1F
	frame[6] = 0xFC
	for i := 7; i < frameLen; i++ {
		frame[i] = 0xAA
	}
	return frame
}

// pesPacket 把 ES 数据包进一个最简 PES 包（header data length 为 0）。
func pesPacket(es []byte) []byte {
	header := []byte{0x00, 0x00, 0x01, 0xC0, 0x00, 0x00, 0x80, 0x00, 0x00}
	return append(header, es...)
}

// tsPackets 把连续字节流切成指定 PID 的 TS 包序列。
// 调用方保证 data 长度是 184 的整数倍，避免填充字节干扰断言。
func tsPackets(t *testing.T, pid int, data []byte) []byte {
	t.Helper()
	if len(data)%184 != 0 {
		t.Fatalf("data length must be a multiple of 184, got %d", len(data))
	}
	var out []byte
	cc := 0
	for i := 0; i < len(data); i += 184 {
		pkt := make([]byte, packetSize)
		pkt[0] = syncByte
		pkt[1] = byte((pid >> 8) & 0x1F)
		if i == 0 {
			pkt[1] |= 0x40 // payload unit start
		}
		pkt[2] = byte(pid & 0xFF)
		pkt[3] = 0x10 | byte(cc&0x0F)
		copy(pkt[4:], data[i:i+184])
		out = append(out, pkt...)
		cc++
	}
	return out
}

// fillerPackets 构造 payload 全零的干扰包。
func fillerPackets(pid, count int) []byte {
	var out []byte
	for i := 0; i < count; i++ {
		pkt := make([]byte, packetSize)
		pkt[0] = syncByte
		pkt[1] = byte((pid >> 8) & 0x1F)
		pkt[2] = byte(pid & 0xFF)
		pkt[3] = 0x10 | byte(i&0x0F)
		out = append(out, pkt...)
	}
	return out
}

// buildES 构造 PES 打包后恰好占满整数个 TS 包的 ADTS 流。
// 两个 TS 包装 368 字节，扣除 9 字节 PES 头剩 359 字节 ES。
func buildES(t *testing.T) []byte {
	t.Helper()
	var es []byte
	for _, n := range []int{50, 50, 50, 50, 50, 50, 59} {
		es = append(es, adtsFrame(t, n)...)
	}
	if len(es) != 359 {
		t.Fatalf("unexpected ES length %d", len(es))
	}
	return es
}

func TestExtractAudio_RoundTrip(t *testing.T) {
	es := buildES(t)
	ts := tsPackets(t, 256, pesPacket(es))

	got := ExtractAudio(ts)
	if !bytes.Equal(got, es) {
		t.Fatalf("extracted %d bytes, want %d identical ES bytes", len(got), len(es))
	}
}

func TestExtractAudio_SelectsPIDWithADTS(t *testing.T) {
	es := buildES(t)

	// 音频 PID 的包数少于干扰 PID，但只有它的 payload 含 ADTS 同步字
	var ts []byte
	ts = append(ts, fillerPackets(257, 30)...)
	ts = append(ts, tsPackets(t, 256, pesPacket(es))...)
	ts = append(ts, fillerPackets(258, 10)...)

	got := ExtractAudio(ts)
	if !bytes.Equal(got, es) {
		t.Fatalf("expected audio PID to win over more frequent PIDs, got %d bytes", len(got))
	}
}

func TestExtractAudio_IgnoresControlPIDs(t *testing.T) {
	es := buildES(t)

	var ts []byte
	ts = append(ts, fillerPackets(pidPAT, 5)...)
	ts = append(ts, fillerPackets(pidSDT, 5)...)
	ts = append(ts, fillerPackets(pidNull, 40)...)
	ts = append(ts, tsPackets(t, 256, pesPacket(es))...)

	got := ExtractAudio(ts)
	if !bytes.Equal(got, es) {
		t.Fatalf("control PIDs should never be selected, got %d bytes", len(got))
	}
}

func TestExtractAudio_ResyncsAfterGarbage(t *testing.T) {
	es := buildES(t)

	// 在包边界之间插入垃圾字节，解包器应逐字节重新找同步字
	garbage := []byte{0x12, 0x34, 0x56}
	packets := tsPackets(t, 256, pesPacket(es))
	ts := append([]byte{}, packets[:packetSize]...)
	ts = append(ts, garbage...)
	ts = append(ts, packets[packetSize:]...)

	got := ExtractAudio(ts)
	if !bytes.Equal(got, es) {
		t.Fatalf("expected resync to recover full ES, got %d bytes", len(got))
	}
}

func TestExtractAudio_NeverErrors(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x47},
		bytes.Repeat([]byte{0x00}, 500),
		bytes.Repeat([]byte{0x47}, 10), // 同步字但不足一个包
	}
	for _, in := range inputs {
		got := ExtractAudio(in)
		if len(got) != 0 {
			t.Errorf("expected empty result for %d garbage bytes, got %d bytes", len(in), len(got))
		}
	}
}

func TestPacketPayload_AdaptationField(t *testing.T) {
	pkt := make([]byte, packetSize)
	pkt[0] = syncByte
	pkt[3] = 0x30 // adaptation field + payload
	pkt[4] = 7    // adaptation field length
	for i := 12; i < packetSize; i++ {
		pkt[i] = 0xBB
	}

	payload := packetPayload(pkt)
	if len(payload) != packetSize-12 {
		t.Fatalf("expected %d payload bytes after adaptation field, got %d", packetSize-12, len(payload))
	}
	if payload[0] != 0xBB {
		t.Errorf("payload should start after the adaptation field")
	}
}

func TestPacketPayload_AdaptationOnly(t *testing.T) {
	pkt := make([]byte, packetSize)
	pkt[0] = syncByte
	pkt[3] = 0x20 // adaptation field only, no payload
	pkt[4] = 183

	if payload := packetPayload(pkt); payload != nil {
		t.Errorf("adaptation-only packet should have no payload, got %d bytes", len(payload))
	}
}

func TestSanitizeADTS_DropsFalseSync(t *testing.T) {
	valid := append(adtsFrame(t, 60), adtsFrame(t, 60)...)

	// 垃圾前缀里埋一个假同步字，长度字段指向缓冲区外
	input := append([]byte{0xFF, 0xF1, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x02}, valid...)

	got := sanitizeADTS(input)
	if !bytes.Equal(got, valid) {
		t.Fatalf("expected only the self-consistent frames, got %d bytes", len(got))
	}
}

func TestSanitizeADTS_LastFrameNeedsNoSuccessor(t *testing.T) {
	frame := adtsFrame(t, 80)
	got := sanitizeADTS(frame)
	if !bytes.Equal(got, frame) {
		t.Fatalf("trailing frame at buffer end should be kept, got %d bytes", len(got))
	}
}
