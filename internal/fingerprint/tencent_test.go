package fingerprint

import (
	"context"
	"testing"
)

func TestNewTencentAMEClient(t *testing.T) {
	if _, err := NewTencentAMEClient(TencentConfig{}); err == nil {
		t.Error("missing credentials should be rejected")
	}
	if _, err := NewTencentAMEClient(TencentConfig{SecretID: "id"}); err == nil {
		t.Error("missing secret key should be rejected")
	}

	c, err := NewTencentAMEClient(TencentConfig{SecretID: "id", SecretKey: "key"})
	if err != nil {
		t.Fatalf("NewTencentAMEClient: %v", err)
	}
	if c.Name() != "tencent-ame" {
		t.Errorf("Name() = %q, want tencent-ame", c.Name())
	}
}

func TestTencentAME_EmptyAudio(t *testing.T) {
	c, err := NewTencentAMEClient(TencentConfig{SecretID: "id", SecretKey: "key"})
	if err != nil {
		t.Fatalf("NewTencentAMEClient: %v", err)
	}
	// 空音频在发起请求前就被拒绝，不会产生网络调用
	if _, err := c.Match(context.Background(), nil); err == nil {
		t.Error("empty audio should be rejected")
	}
}

func TestIsAMENoMatchError(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"FailedOperation.RecognizeErr", true},
		{"[TencentCloudSDKError] Code=FailedOperation.RecognizeErr, Message=...", true},
		{"ResourceNotFound", true},
		{"AuthFailure.SignatureExpire", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isAMENoMatchError(tt.in); got != tt.want {
			t.Errorf("isAMENoMatchError(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
