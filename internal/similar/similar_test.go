package similar

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		stripPar bool
		want     string
	}{
		{"plain chinese", "海阔天空", false, "海阔天空"},
		{"traditional folded", "海闊天空", false, "海阔天空"},
		{"parenthetical stripped", "海阔天空 (Live)", true, "海阔天空"},
		{"fullwidth parenthetical stripped", "海阔天空（现场）", true, "海阔天空"},
		{"parenthetical kept", "海阔天空(2003)", false, "海阔天空2003"},
		{"filler removed", "海阔天空 国语版", false, "海阔天空"},
		{"latin lowercased", "Hai Kuo Tian Kong", false, "haikuotiankong"},
		{"punctuation dropped", "你好,世界!", false, "你好世界"},
		{"empty", "", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input, tt.stripPar); got != tt.want {
				t.Errorf("Normalize(%q, %v) = %q, want %q", tt.input, tt.stripPar, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"海闊天空 (Live)", "Hai Kuo Tian Kong", "十年 - 陈奕迅", "光辉岁月 粤语版"}
	for _, in := range inputs {
		once := Normalize(in, true)
		twice := Normalize(once, true)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestRomanize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"海阔天空", "haikuotiankong"},
		{"Hai Kuo Tian Kong", "haikuotiankong"},
		{"十年", "shinian"},
		{"Beyond", "beyond"},
		{"月亮代表我的心2", "yueliangdaibiaowodexin2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Romanize(tt.input); got != tt.want {
			t.Errorf("Romanize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRomanize_MixedAndChineseAgree(t *testing.T) {
	// 罗马化查询词和中文目录条目必须落在同一维度上
	if Romanize("海阔天空") != Romanize("HaiKuoTianKong") {
		t.Errorf("romanized forms should agree: %q vs %q",
			Romanize("海阔天空"), Romanize("HaiKuoTianKong"))
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"海阔天空", "海阔天", 1},
		// 长度差超过 10 直接返回哨兵值
		{"", "12345678901", 100},
		{"ab", "abcdefghijklmn", 100},
	}
	for _, tt := range tests {
		if got := EditDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEditDistance_Symmetric(t *testing.T) {
	pairs := [][2]string{{"kitten", "sitting"}, {"haikuo", "haiku"}, {"海阔天空", "海阔"}}
	for _, p := range pairs {
		if EditDistance(p[0], p[1]) != EditDistance(p[1], p[0]) {
			t.Errorf("EditDistance not symmetric for %q/%q", p[0], p[1])
		}
	}
}

func TestIsSimilar(t *testing.T) {
	tests := []struct {
		name string
		p1   string
		p2   string
		want bool
	}{
		{"exact", "haikuotiankong", "haikuotiankong", true},
		{"both empty", "", "", false},
		{"one empty", "haikuotiankong", "", false},
		{"long containment", "haikuotiankong", "haikuotiankongbeyond", true},
		{"short containment with high ratio", "abcd", "abcdef", true},
		{"short containment with low ratio", "abc", "abcdefghij", false},
		{"prefix within tolerance", "haikuotiankon", "haikuotiankongxyz", true},
		{"near equal within tolerance", "zhishaohaiyouni", "zheshaohaiyouni", true},
		{"unrelated", "haikuotiankong", "yueliangdaibiao", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSimilar(tt.p1, tt.p2); got != tt.want {
				t.Errorf("IsSimilar(%q, %q) = %v, want %v", tt.p1, tt.p2, got, tt.want)
			}
			// 参数顺序不应影响结果
			if got := IsSimilar(tt.p2, tt.p1); got != tt.want {
				t.Errorf("IsSimilar(%q, %q) = %v, want %v", tt.p2, tt.p1, got, tt.want)
			}
		})
	}
}

func TestIsRomanizedOrLatin(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Hai Kuo Tian Kong", true},
		{"Beyond", true},
		{"海阔天空", false},
		{"Beyond乐队", false},
		{"ab", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRomanizedOrLatin(tt.input); got != tt.want {
			t.Errorf("IsRomanizedOrLatin(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsDerivativeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"海阔天空 (伴奏)", true},
		{"海阔天空 Instrumental", true},
		{"海阔天空 (Club Mix)", true},
		{"Night Shift Remix", true},
		{"海阔天空", false},
		{"十年", false},
	}
	for _, tt := range tests {
		if got := IsDerivativeTitle(tt.input); got != tt.want {
			t.Errorf("IsDerivativeTitle(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"海阔天空 (Live)", "海阔天空"},
		{"海阔天空（现场）", "海阔天空"},
		{"十年 - Live", "十年"},
		{"红豆 (Demo)", "红豆"},
		{"红豆 (Remix)", "红豆"},
		{"海阔天空", "海阔天空"},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.input); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanAlbum(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"孤勇者 - Single", "孤勇者"},
		{"盛夏光年 (EP)", "盛夏光年"},
		{"叶惠美", "叶惠美"},
	}
	for _, tt := range tests {
		if got := CleanAlbum(tt.input); got != tt.want {
			t.Errorf("CleanAlbum(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToSimplified(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"海闊天空", "海阔天空"},
		{"歲月無聲", "岁月无声"},
		{"妳的樣子", "你的樣子"}, // 未收录的字符原样保留
		{"已经是简体", "已经是简体"},
	}
	for _, tt := range tests {
		if got := ToSimplified(tt.input); got != tt.want {
			t.Errorf("ToSimplified(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
