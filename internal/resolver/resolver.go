// Package resolver 把指纹引擎返回的（可能罗马化的）歌名/歌手
// 解析为目录后端里的权威中文元数据，并负责歌词定位。
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/longhaiqwe/radioapp/internal/catalog"
	"github.com/longhaiqwe/radioapp/internal/logger"
	"github.com/longhaiqwe/radioapp/internal/similar"
)

// Strictness 目录匹配的严格程度。
type Strictness int

const (
	// Strict 歌名和歌手都必须通过校验。
	Strict Strictness = iota
	// TitleOnly 仅校验歌名（容忍歌手不一致，如合唱/翻唱条目）。
	TitleOnly
	// Fuzzy 歌名包含关系或拼音相似即可。
	Fuzzy
)

func (s Strictness) String() string {
	switch s {
	case Strict:
		return "strict"
	case TitleOnly:
		return "titleOnly"
	case Fuzzy:
		return "fuzzy"
	}
	return "unknown"
}

// 各阶段的搜索结果页大小
const (
	keywordSearchLimit = 5
	artistSearchLimit  = 30
)

// Resolver 元数据解析器。后端按固定顺序尝试：主目录失败再试副目录。
type Resolver struct {
	primary   catalog.Provider
	secondary catalog.Provider
}

// New 创建解析器。primary/secondary 分别为主、副目录后端。
func New(primary, secondary catalog.Provider) *Resolver {
	return &Resolver{primary: primary, secondary: secondary}
}

// ResolveChineseMetadata 尝试把 (title, artist) 解析为中文形式。
// 策略按序尝试，首个成功者生效：
//  1. 歌手反查（仅当标题是拼音/罗马化时）
//  2. 主目录关键词搜索
//  3. 副目录关键词搜索
//
// 全部失败时返回 ok=false，调用方保留原始元数据。
func (r *Resolver) ResolveChineseMetadata(ctx context.Context, title, artist string) (string, string, bool) {
	logger.Infof("[resolver] 开始转换中文元数据 - title=%s artist=%s", title, artist)

	// 长拼音标题直接搜索容易失败，优先尝试通过歌手反查
	if similar.IsRomanizedOrLatin(title) {
		if t, a, ok := r.resolveByArtistSearch(ctx, title, artist); ok {
			return t, a, true
		}
	}

	if t, a, ok := r.resolveByKeyword(ctx, r.primary, title, artist); ok {
		return t, a, true
	}
	logger.Infof("[resolver] %s 常规搜索失败，尝试 %s", r.primary.ProviderName(), r.secondary.ProviderName())
	if t, a, ok := r.resolveByKeyword(ctx, r.secondary, title, artist); ok {
		return t, a, true
	}

	logger.Info("[resolver] 所有平台均未获取到中文元数据")
	return "", "", false
}

// resolveByArtistSearch 只用歌手名搜索，抓取前 30 首，
// 把各候选歌名转拼音后与查询标题做相似度比对。
func (r *Resolver) resolveByArtistSearch(ctx context.Context, title, artist string) (string, string, bool) {
	cleanArtist := similar.Normalize(artist, true)
	if cleanArtist == "" {
		return "", "", false
	}

	songs, err := r.primary.Search(ctx, cleanArtist, artistSearchLimit)
	if err != nil {
		logger.Warnf("[resolver] 歌手反查失败: %v", err)
		return "", "", false
	}

	targetPinyin := similar.Romanize(title)
	logger.Debugf("[resolver] 歌手反查: %d 首候选, target=%s", len(songs), targetPinyin)

	for _, song := range songs {
		if song.Name == "" {
			continue
		}
		resultPinyin := similar.Romanize(song.Name)
		if similar.IsSimilar(targetPinyin, resultPinyin) {
			logger.Infof("[resolver] 歌手反查命中: %s (%s ~= %s)", song.Name, targetPinyin, resultPinyin)
			return song.Name, song.Artist, true
		}
	}

	logger.Debug("[resolver] 歌手反查未找到匹配歌曲")
	return "", "", false
}

// resolveByKeyword 用 "歌名 歌手" 做关键词搜索。
// 两轮遍历：先排除伴奏/Remix 等衍生版本，全部失败再放开。
func (r *Resolver) resolveByKeyword(ctx context.Context, p catalog.Provider, title, artist string) (string, string, bool) {
	query := strings.TrimSpace(title + " " + artist)
	songs, err := p.Search(ctx, query, keywordSearchLimit)
	if err != nil {
		logger.Warnf("[resolver] %s 搜索失败: %v", p.ProviderName(), err)
		return "", "", false
	}

	for _, allowDerivative := range []bool{false, true} {
		for _, song := range songs {
			if song.Name == "" {
				continue
			}
			if !allowDerivative && similar.IsDerivativeTitle(song.Name) {
				continue
			}
			// 目录返回的候选本身还是罗马化的，对解析中文没有价值
			if similar.IsRomanizedOrLatin(song.Name) {
				continue
			}

			queryPinyin := similar.Romanize(title)
			resultPinyin := similar.Romanize(song.Name)
			if !similar.IsSimilar(queryPinyin, resultPinyin) {
				continue
			}

			// 查询歌手本身是罗马化时无法做中文比对，跳过校验
			if !similar.IsRomanizedOrLatin(artist) {
				qa := similar.Normalize(artist, false)
				ra := similar.Normalize(song.Artist, false)
				if qa == "" || ra == "" {
					continue
				}
				if !strings.Contains(qa, ra) && !strings.Contains(ra, qa) {
					continue
				}
			}

			logger.Infof("[resolver] %s 命中中文元数据: %s - %s", p.ProviderName(), song.Name, song.Artist)
			return song.Name, song.Artist, true
		}
	}
	return "", "", false
}

// isMatch 校验一条目录结果是否与查询匹配。
// 歌名先归一化比较，不等时退化到拼音比较；
// Fuzzy 级别还允许包含关系和拼音相似度。
func isMatch(queryTitle, queryArtist, resultTitle, resultArtist string, strictness Strictness) bool {
	qTitle := similar.Normalize(queryTitle, true)
	rTitle := similar.Normalize(resultTitle, true)

	titleMatch := false
	if strictness == Fuzzy {
		if qTitle != "" && rTitle != "" && (strings.Contains(qTitle, rTitle) || strings.Contains(rTitle, qTitle)) {
			titleMatch = true
		} else if similar.IsSimilar(similar.Romanize(qTitle), similar.Romanize(rTitle)) {
			titleMatch = true
		}
	} else {
		if qTitle == rTitle {
			titleMatch = true
		} else if similar.Romanize(qTitle) == similar.Romanize(rTitle) {
			titleMatch = true
		}
	}

	if !titleMatch {
		return false
	}
	if strictness == TitleOnly {
		return true
	}

	qArtist := similar.Normalize(queryArtist, false)
	rArtist := similar.Normalize(resultArtist, false)
	return strings.Contains(qArtist, rArtist) || strings.Contains(rArtist, qArtist)
}

// FindSongIDs 在指定后端定位与 (title, artist) 匹配的歌曲 ID 列表。
func (r *Resolver) FindSongIDs(ctx context.Context, p catalog.Provider, title, artist string, strictness Strictness) ([]string, error) {
	query := strings.TrimSpace(title + " " + artist)
	songs, err := p.Search(ctx, query, keywordSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("搜索 %s 失败: %w", p.ProviderName(), err)
	}

	var ids []string
	for _, song := range songs {
		if song.ID == "" {
			continue
		}
		if isMatch(title, artist, song.Name, song.Artist, strictness) {
			ids = append(ids, song.ID)
		}
	}
	return ids, nil
}

// FetchLyrics 定位歌曲并获取 LRC 歌词。
// 按 strict → titleOnly → fuzzy 三档逐级放宽，每档按主、副目录顺序尝试。
func (r *Resolver) FetchLyrics(ctx context.Context, title, artist string) (string, bool) {
	logger.Infof("[resolver] 开始获取歌词 - title=%s artist=%s", title, artist)

	for _, strictness := range []Strictness{Strict, TitleOnly, Fuzzy} {
		for _, p := range []catalog.Provider{r.primary, r.secondary} {
			ids, err := r.FindSongIDs(ctx, p, title, artist, strictness)
			if err != nil {
				logger.Warnf("[resolver] 歌词定位失败 (%s/%s): %v", p.ProviderName(), strictness, err)
				continue
			}
			for _, id := range ids {
				lyric, err := p.FetchLyric(ctx, id)
				if err != nil {
					logger.Debugf("[resolver] 获取歌词失败 (%s id=%s): %v", p.ProviderName(), id, err)
					continue
				}
				logger.Infof("[resolver] 歌词命中 (%s/%s id=%s)", p.ProviderName(), strictness, id)
				return lyric, true
			}
		}
	}
	return "", false
}
