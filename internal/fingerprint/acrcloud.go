package fingerprint

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/longhaiqwe/radioapp/internal/logger"
)

// ACRCloudClient ACRCloud 在线识别客户端。
// 文档：https://docs.acrcloud.com/reference/identification-api
type ACRCloudClient struct {
	endpoint     string
	accessKey    string
	accessSecret string
	httpClient   *http.Client

	// now 可注入，测试用
	now func() time.Time
}

// ACRCloudConfig ACRCloud 账号配置。
type ACRCloudConfig struct {
	Host         string // 如 identify-ap-southeast-1.acrcloud.com
	AccessKey    string
	AccessSecret string
}

// NewACRCloudClient 创建 ACRCloud 客户端。
func NewACRCloudClient(cfg ACRCloudConfig) (*ACRCloudClient, error) {
	if cfg.AccessKey == "" || cfg.AccessSecret == "" {
		return nil, fmt.Errorf("ACRCloud AccessKey 和 AccessSecret 不能为空")
	}
	host := cfg.Host
	if host == "" {
		host = "identify-ap-southeast-1.acrcloud.com"
	}
	return &ACRCloudClient{
		endpoint:     fmt.Sprintf("https://%s/v1/identify", host),
		accessKey:    cfg.AccessKey,
		accessSecret: cfg.AccessSecret,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		now:          time.Now,
	}, nil
}

// Name 实现 Matcher 接口。
func (c *ACRCloudClient) Name() string {
	return "acrcloud"
}

// acrResponse /v1/identify 的响应结构。
type acrResponse struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
	Metadata struct {
		Music []struct {
			Title   string `json:"title"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
			ReleaseDate  string `json:"release_date"`
			PlayOffsetMS int64  `json:"play_offset_ms"`
		} `json:"music"`
	} `json:"metadata"`
}

// ACRCloud 状态码：1001 表示无匹配结果
const acrCodeNoResult = 1001

// Match 实现 Matcher 接口。
// 把音频样本以 multipart 形式提交给 /v1/identify。
func (c *ACRCloudClient) Match(ctx context.Context, audio []byte) ([]MediaItem, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("音频数据为空")
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := c.sign(timestamp)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"access_key":        c.accessKey,
		"sample_bytes":      strconv.Itoa(len(audio)),
		"timestamp":         timestamp,
		"signature":         signature,
		"data_type":         "audio",
		"signature_version": "1",
	}
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("构建表单失败: %w", err)
		}
	}
	part, err := w.CreateFormFile("sample", "sample.aac")
	if err != nil {
		return nil, fmt.Errorf("构建表单失败: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("写入音频数据失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("构建表单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 ACRCloud 失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 ACRCloud 响应失败: %w", err)
	}

	var result acrResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析 ACRCloud 响应失败: %w", err)
	}

	if result.Status.Code != 0 {
		if result.Status.Code == acrCodeNoResult {
			logger.Debugf("[fingerprint] ACRCloud 未匹配到歌曲")
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("ACRCloud 返回错误: code=%d msg=%s", result.Status.Code, result.Status.Msg)
	}
	if len(result.Metadata.Music) == 0 {
		return nil, ErrNoMatch
	}

	items := make([]MediaItem, 0, len(result.Metadata.Music))
	for _, m := range result.Metadata.Music {
		item := MediaItem{
			Title:  m.Title,
			Album:  m.Album.Name,
			Offset: float64(m.PlayOffsetMS) / 1000.0,
		}
		if len(m.Artists) > 0 {
			item.Artist = m.Artists[0].Name
		}
		if m.ReleaseDate != "" {
			if t, err := time.Parse("2006-01-02", m.ReleaseDate); err == nil {
				item.ReleaseDate = t
			}
		}
		items = append(items, item)
	}

	logger.Infof("[fingerprint] ACRCloud 识别成功: %s - %s", items[0].Title, items[0].Artist)
	return items, nil
}

// sign 生成 signature_version=1 的 HMAC-SHA1 签名。
// 待签名串固定为 POST、URI、access_key、data_type、版本号、时间戳六行。
func (c *ACRCloudClient) sign(timestamp string) string {
	stringToSign := fmt.Sprintf("POST\n/v1/identify\n%s\naudio\n1\n%s", c.accessKey, timestamp)
	mac := hmac.New(sha1.New, []byte(c.accessSecret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
