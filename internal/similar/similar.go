// Package similar 提供歌名/歌手名比对所需的纯函数：
// 归一化、拼音转换、编辑距离以及分层相似度判定。
// 元数据解析和指纹候选排序共用这一套逻辑。
package similar

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// editDistanceSentinel 长度差超过 10 时直接返回的大值，避免无谓计算。
const editDistanceSentinel = 100

var (
	parenRe = regexp.MustCompile(`\s*[\(\[（{][^\)\]）}]*[\)\]）}]`)

	// 衍生版本关键词：伴奏、混音等非原唱条目
	derivativeKeywords = []string{"伴奏", "instrumental", "inst.", "off vocal", "dj", "remix", "club mix"}

	// 归一化时移除的填充词
	fillerTokens = []string{"粤语", "国语", "版", "music", "video", "official"}

	cleanTitleRes = []*regexp.Regexp{
		regexp.MustCompile(`\s*[\(\[（]\s*(Live|LIVE|现场|演唱会)\s*[\)\]）]`),
		regexp.MustCompile(`\s*[\(\[（]\s*(Demo|DEMO|试听|小样)\s*[\)\]）]`),
		regexp.MustCompile(`\s*[\(\[（]\s*(Remix|REMIX|混音)\s*[\)\]）]`),
		regexp.MustCompile(`\s*[\(\[（]\s*(Cover|COVER|翻唱)\s*[\)\]）]`),
		regexp.MustCompile(`\s*[\(\[（]\s*(Instrumental|伴奏)\s*[\)\]）]`),
		regexp.MustCompile(`\s*-\s*(Live|LIVE|现场版?)\s*$`),
	}

	cleanAlbumRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*-\s*(Single|EP)\s*$`),
		regexp.MustCompile(`(?i)\s*[\(\[（]\s*(Single|EP)\s*[\)\]）]`),
	}
)

// Normalize 将文本归一化为可比较的形式：
// 繁体转简体、可选去除括号内容、转小写、去填充词、去标点和空白。
// 幂等：Normalize(Normalize(x)) == Normalize(x)。
func Normalize(text string, stripParenthetical bool) string {
	result := ToSimplified(text)

	if stripParenthetical {
		result = parenRe.ReplaceAllString(result, "")
	}

	result = strings.ToLower(result)

	for _, filler := range fillerTokens {
		result = strings.ReplaceAll(result, filler, "")
	}

	var b strings.Builder
	for _, r := range result {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Romanize 把文本转换为无声调拼音：汉字逐字转拼音，
// ASCII 字母数字原样保留并转小写，空格和其他字符丢弃。
// 用于把可能已罗马化的查询词和目录里的中文歌名放在同一维度比较。
func Romanize(text string) string {
	args := pinyin.NewArgs()
	args.Style = pinyin.Normal

	var b strings.Builder
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			py := pinyin.Pinyin(string(r), args)
			if len(py) > 0 && len(py[0]) > 0 {
				b.WriteString(py[0][0])
			}
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// EditDistance 计算两个字符串的 Levenshtein 编辑距离（按 rune 计）。
// 长度差超过 10 时直接返回 100，避免无谓计算。
func EditDistance(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)
	m, n := len(s1), len(s2)

	if abs(m-n) > 10 {
		return editDistanceSentinel
	}

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, min(d[i][j-1]+1, d[i-1][j-1]+cost))
		}
	}
	return d[m][n]
}

// IsSimilar 分层判定两个（通常已归一化的）字符串是否足够相似。
// 按顺序评估，首个命中即返回：
//  1. 完全相等。
//  2. 包含关系，且短串长度 > 10 或长短比 > 0.5。
//     电台标题常被截断，足够长的精准包含应当视为匹配。
//  3. 短串长度 > 5 时，取长串的等长前缀算编辑距离，差异 < 20%。
//  4. 长度差 < 5 时，对全串算编辑距离，差异 < 20%（容忍 zhi/zhe 这类拼写差）。
func IsSimilar(p1, p2 string) bool {
	if p1 == p2 {
		return p1 != ""
	}

	longer, shorter := p1, p2
	if len([]rune(p2)) > len([]rune(p1)) {
		longer, shorter = p2, p1
	}
	longerLen := len([]rune(longer))
	shorterLen := len([]rune(shorter))

	if shorterLen > 0 && strings.Contains(longer, shorter) {
		if shorterLen > 10 || float64(shorterLen)/float64(longerLen) > 0.5 {
			return true
		}
	}

	if shorterLen > 5 {
		prefix := string([]rune(longer)[:shorterLen])
		distance := EditDistance(shorter, prefix)
		if float64(distance)/float64(shorterLen) < 0.2 {
			return true
		}
	}

	if abs(len([]rune(p1))-len([]rune(p2))) < 5 {
		distance := EditDistance(p1, p2)
		maxLen := max(len([]rune(p1)), len([]rune(p2)))
		if maxLen > 0 && float64(distance)/float64(maxLen) < 0.2 {
			return true
		}
	}

	return false
}

// IsRomanizedOrLatin 判断文本是否为拼音/罗马化形式：
// 非空、全部为 ASCII 字符且长度大于 2。
func IsRomanizedOrLatin(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return len([]rune(text)) > 2
}

// IsDerivativeTitle 判断标题是否为衍生版本（伴奏、Remix、DJ 等）。
func IsDerivativeTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range derivativeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CleanTitle 移除标题中的 (Live)、(Demo)、(Remix) 等后缀。
func CleanTitle(title string) string {
	result := title
	for _, re := range cleanTitleRes {
		result = re.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

// CleanAlbum 移除专辑名中的 " - Single"、" - EP" 等后缀。
func CleanAlbum(album string) string {
	result := album
	for _, re := range cleanAlbumRes {
		result = re.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
