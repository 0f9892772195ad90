package similar

import "strings"

// variantMap 覆盖歌名/歌手名里高频出现的繁体及异体字。
// 目录接口返回的港台条目常用繁体，比对前先折算到简体。
var variantMap = map[rune]rune{
	// 异体/通假
	'妳': '你', '祂': '他', '牠': '它', '著': '着',
	// 常见繁体
	'愛': '爱', '樂': '乐', '夢': '梦', '憶': '忆', '戀': '恋', '淚': '泪',
	'聽': '听', '說': '说', '話': '话', '誰': '谁', '請': '请', '謝': '谢',
	'讓': '让', '這': '这', '還': '还', '過': '过', '遠': '远', '邊': '边',
	'陽': '阳', '風': '风', '飛': '飞', '鳥': '鸟', '馬': '马', '雲': '云',
	'電': '电', '時': '时', '間': '间', '閃': '闪', '開': '开', '關': '关',
	'門': '门', '問': '问', '長': '长', '鐘': '钟', '錯': '错', '銀': '银',
	'難': '难', '離': '离', '霧': '雾', '點': '点', '龍': '龙', '歲': '岁',
	'發': '发', '變': '变', '舊': '旧', '藍': '蓝', '蘇': '苏', '葉': '叶',
	'萬': '万', '華': '华', '紅': '红', '給': '给', '絕': '绝', '終': '终',
	'細': '细', '純': '纯', '約': '约', '緣': '缘', '續': '续', '綠': '绿',
	'經': '经', '結': '结', '絲': '丝', '傷': '伤', '們': '们', '個': '个',
	'來': '来', '寫': '写', '涼': '凉', '別': '别', '劇': '剧', '動': '动',
	'勝': '胜', '區': '区', '單': '单', '闊': '阔', '與': '与', '為': '为',
	'烏': '乌', '無': '无', '專': '专', '東': '东', '業': '业', '夠': '够',
	'頭': '头', '奮': '奋', '媽': '妈', '學': '学', '寶': '宝', '對': '对',
	'將': '将', '屬': '属', '歸': '归', '當': '当', '會': '会', '機': '机',
	'殺': '杀', '氣': '气', '決': '决', '沒': '没', '淺': '浅', '滿': '满',
	'濃': '浓', '灣': '湾', '燈': '灯', '熱': '热', '獨': '独', '現': '现',
	'畫': '画', '癡': '痴', '禮': '礼', '種': '种', '窩': '窝', '簡': '简',
	'緊': '紧', '羅': '罗', '聲': '声', '聰': '聪', '臉': '脸', '興': '兴',
	'處': '处', '號': '号', '螢': '萤', '衛': '卫', '親': '亲', '觀': '观',
	'計': '计', '記': '记', '許': '许', '詞': '词', '詩': '诗', '認': '认',
	'語': '语', '誤': '误', '調': '调', '談': '谈', '謊': '谎', '證': '证',
	'識': '识', '讀': '读', '贏': '赢', '趕': '赶', '車': '车', '軟': '软',
	'輕': '轻', '輪': '轮', '轉': '转', '辦': '办', '農': '农', '遊': '游',
	'運': '运', '遺': '遗', '遲': '迟', '釋': '释', '針': '针', '鋼': '钢',
	'鏡': '镜', '陣': '阵', '隻': '只', '雙': '双', '雜': '杂', '靈': '灵',
	'靜': '静', '願': '愿', '顏': '颜', '類': '类', '飄': '飘', '餘': '余',
	'驕': '骄', '體': '体', '髮': '发', '鬧': '闹', '魚': '鱼', '鳳': '凤',
	'鹹': '咸', '麗': '丽', '麼': '么', '黃': '黄', '夥': '伙',
}

// ToSimplified 将文本中的繁体/异体字折算为简体。
// 仅覆盖歌曲元数据里的常见字，未收录的字符原样保留。
func ToSimplified(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if s, ok := variantMap[r]; ok {
			b.WriteRune(s)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
