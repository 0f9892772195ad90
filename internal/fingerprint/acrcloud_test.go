package fingerprint

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestACRClient(t *testing.T, srvURL string) *ACRCloudClient {
	t.Helper()
	c, err := NewACRCloudClient(ACRCloudConfig{
		AccessKey:    "test-key",
		AccessSecret: "test-secret",
	})
	if err != nil {
		t.Fatalf("NewACRCloudClient: %v", err)
	}
	c.endpoint = srvURL + "/v1/identify"
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestACRCloud_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart form: %v", err)
		}
		if got := r.FormValue("access_key"); got != "test-key" {
			t.Errorf("unexpected access_key: %q", got)
		}
		if got := r.FormValue("data_type"); got != "audio" {
			t.Errorf("unexpected data_type: %q", got)
		}

		// 校验 HMAC-SHA1 签名串
		ts := r.FormValue("timestamp")
		stringToSign := fmt.Sprintf("POST\n/v1/identify\ntest-key\naudio\n1\n%s", ts)
		mac := hmac.New(sha1.New, []byte("test-secret"))
		mac.Write([]byte(stringToSign))
		want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		if got := r.FormValue("signature"); got != want {
			t.Errorf("signature mismatch: got %q want %q", got, want)
		}

		file, _, err := r.FormFile("sample")
		if err != nil {
			t.Fatalf("missing sample file: %v", err)
		}
		defer file.Close()

		fmt.Fprint(w, `{
			"status": {"code": 0, "msg": "Success"},
			"metadata": {"music": [{
				"title": "海阔天空",
				"artists": [{"name": "Beyond"}],
				"album": {"name": "乐与怒"},
				"release_date": "1993-09-17",
				"play_offset_ms": 45500
			}]}
		}`)
	}))
	defer srv.Close()

	c := newTestACRClient(t, srv.URL)
	items, err := c.Match(context.Background(), []byte{0xFF, 0xF1, 0x50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.Title != "海阔天空" || item.Artist != "Beyond" || item.Album != "乐与怒" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Offset != 45.5 {
		t.Errorf("play_offset_ms should convert to seconds, got %v", item.Offset)
	}
	if want := time.Date(1993, 9, 17, 0, 0, 0, 0, time.UTC); !item.ReleaseDate.Equal(want) {
		t.Errorf("release date = %v, want %v", item.ReleaseDate, want)
	}
}

func TestACRCloud_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": {"code": 1001, "msg": "No result"}}`)
	}))
	defer srv.Close()

	c := newTestACRClient(t, srv.URL)
	_, err := c.Match(context.Background(), []byte{0x01})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestACRCloud_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": {"code": 3001, "msg": "invalid access key"}}`)
	}))
	defer srv.Close()

	c := newTestACRClient(t, srv.URL)
	_, err := c.Match(context.Background(), []byte{0x01})
	if err == nil || errors.Is(err, ErrNoMatch) {
		t.Fatalf("service errors must stay distinct from no-match, got %v", err)
	}
}

func TestACRCloud_EmptyAudio(t *testing.T) {
	c := newTestACRClient(t, "http://unused")
	if _, err := c.Match(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestNewACRCloudClient_RequiresKeys(t *testing.T) {
	if _, err := NewACRCloudClient(ACRCloudConfig{}); err == nil {
		t.Fatal("expected error when keys are missing")
	}
}
