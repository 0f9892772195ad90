package fingerprint

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/longhaiqwe/radioapp/internal/logger"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tchttp "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/http"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
)

// TencentAMEClient 腾讯云正版曲库直通车（AME）听歌识曲客户端。
// 使用 RecognizeAudio 接口，按次计费，同步返回。
// 文档：https://cloud.tencent.com/document/product/1155
type TencentAMEClient struct {
	client *common.Client
}

// TencentConfig 腾讯云账号配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	Region    string // 默认 ap-guangzhou
}

// NewTencentAMEClient 创建腾讯云 AME 识别客户端。
func NewTencentAMEClient(cfg TencentConfig) (*TencentAMEClient, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("腾讯云 SecretID 和 SecretKey 不能为空")
	}

	region := cfg.Region
	if region == "" {
		region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "ame.tencentcloudapi.com"

	client := common.NewCommonClient(credential, region, cpf)
	logger.Infof("[fingerprint] 腾讯云 AME 识别客户端已初始化 (region=%s)", region)
	return &TencentAMEClient{client: client}, nil
}

// Name 实现 Matcher 接口。
func (c *TencentAMEClient) Name() string {
	return "tencent-ame"
}

// ameResponse RecognizeAudio 的响应体。
type ameResponse struct {
	Response struct {
		MusicItems []struct {
			MusicName  string `json:"MusicName"`
			SingerName string `json:"SingerName"`
			AlbumName  string `json:"AlbumName"`
		} `json:"MusicItems"`
		Error *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	} `json:"Response"`
}

// Match 实现 Matcher 接口。
// 音频以 base64 提交，限制约 5MB，15 秒的采样远小于此。
func (c *TencentAMEClient) Match(ctx context.Context, audio []byte) ([]MediaItem, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("音频数据为空")
	}

	request := tchttp.NewCommonRequest("ame", "2019-09-16", "RecognizeAudio")
	request.SetContext(ctx)
	params := map[string]interface{}{
		"AudioData": base64.StdEncoding.EncodeToString(audio),
	}
	if err := request.SetActionParameters(params); err != nil {
		return nil, fmt.Errorf("构建 AME 请求失败: %w", err)
	}

	response := tchttp.NewCommonResponse()
	if err := c.client.Send(request, response); err != nil {
		// SDK 把 API 级错误也包成 error，无匹配时返回识别失败类错误码
		if isAMENoMatchError(err.Error()) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("调用腾讯云 AME 识别失败: %w", err)
	}

	var result ameResponse
	if err := json.Unmarshal(response.GetBody(), &result); err != nil {
		return nil, fmt.Errorf("解析 AME 响应失败: %w", err)
	}

	if result.Response.Error != nil {
		if isAMENoMatchError(result.Response.Error.Code) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("腾讯云 AME 返回错误: %s %s", result.Response.Error.Code, result.Response.Error.Message)
	}
	if len(result.Response.MusicItems) == 0 {
		logger.Debug("[fingerprint] 腾讯云 AME 未匹配到歌曲")
		return nil, ErrNoMatch
	}

	items := make([]MediaItem, 0, len(result.Response.MusicItems))
	for _, m := range result.Response.MusicItems {
		items = append(items, MediaItem{
			Title:  m.MusicName,
			Artist: m.SingerName,
			Album:  m.AlbumName,
		})
	}

	logger.Infof("[fingerprint] 腾讯云 AME 识别成功: %s - %s", items[0].Title, items[0].Artist)
	return items, nil
}

// isAMENoMatchError 判断错误码是否属于"曲库无匹配"而非服务故障。
func isAMENoMatchError(s string) bool {
	return strings.Contains(s, "FailedOperation.RecognizeErr") ||
		strings.Contains(s, "ResourceNotFound")
}
