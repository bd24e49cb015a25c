package i18n

import "strings"

// Language 是界面语言代码（en、zh、ja）。
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"

	// DefaultLanguage 未配置时的默认语言。
	DefaultLanguage = LanguageEnglish
)

// Normalize 将用户输入的语言值转换为统一代码，空值与未知值回退到默认语言。
func Normalize(value string) Language {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "zh", "zh-cn", "zh_cn", "zh-hans", "cn", "chinese", "中文":
		return LanguageChinese
	case "ja", "ja-jp", "ja_jp", "jp", "japanese", "日本語":
		return LanguageJapanese
	case "en", "en-us", "en_us", "en-gb", "english":
		return LanguageEnglish
	default:
		return DefaultLanguage
	}
}

// Code 返回规范化后的语言代码。
func (l Language) Code() string {
	return string(Normalize(string(l)))
}

// Key 标识一条界面文案。
type Key string

const (
	DefaultTitle     Key = "default_title"
	SelectFlow       Key = "select_flow"
	NoFlow           Key = "no_flow"
	InputPlaceholder Key = "input_placeholder"
	Copied           Key = "copied"
	NothingToCopy    Key = "nothing_to_copy"
	EmptyState       Key = "empty_state"
	Hints            Key = "hints"
	UnknownCommand   Key = "unknown_command"
	FlowsReloaded    Key = "flows_reloaded"
	Thinking         Key = "thinking"
)

var catalog = map[Language]map[Key]string{
	LanguageEnglish: {
		DefaultTitle:     "Prompt Flow Chat",
		SelectFlow:       "Select flow",
		NoFlow:           "no flow available",
		InputPlaceholder: "Type a message…",
		Copied:           "copied last output to clipboard",
		NothingToCopy:    "nothing to copy yet",
		EmptyState:       "Pick a flow and send a message to start.",
		Hints:            "Enter send • Alt+Enter newline • Ctrl+F flows • Ctrl+R reset • Ctrl+Y copy • PgUp/PgDn scroll • Ctrl+C quit",
		UnknownCommand:   "unknown command, type / to list commands",
		FlowsReloaded:    "flows reloaded",
		Thinking:         "thinking",
	},
	LanguageChinese: {
		DefaultTitle:     "Prompt Flow 对话",
		SelectFlow:       "选择 Flow",
		NoFlow:           "没有可用的 Flow",
		InputPlaceholder: "输入消息…",
		Copied:           "已复制最后一条输出",
		NothingToCopy:    "暂无可复制内容",
		EmptyState:       "选择一个 Flow 并发送消息开始对话。",
		Hints:            "Enter 发送 • Alt+Enter 换行 • Ctrl+F 选择 Flow • Ctrl+R 重置 • Ctrl+Y 复制 • PgUp/PgDn 滚动 • Ctrl+C 退出",
		UnknownCommand:   "不认识的命令，请输入 / 查看列表",
		FlowsReloaded:    "已重新加载 Flow",
		Thinking:         "思考中",
	},
	LanguageJapanese: {
		DefaultTitle:     "Prompt Flow チャット",
		SelectFlow:       "Flow を選択",
		NoFlow:           "利用可能な Flow がありません",
		InputPlaceholder: "メッセージを入力…",
		Copied:           "最後の出力をコピーしました",
		NothingToCopy:    "コピーする内容がありません",
		EmptyState:       "Flow を選んでメッセージを送信してください。",
		Hints:            "Enter 送信 • Alt+Enter 改行 • Ctrl+F Flow 選択 • Ctrl+R リセット • Ctrl+Y コピー • PgUp/PgDn スクロール • Ctrl+C 終了",
		UnknownCommand:   "不明なコマンドです。/ で一覧を表示します",
		FlowsReloaded:    "Flow を再読み込みしました",
		Thinking:         "考え中",
	},
}

// T 返回 key 在语言 l 下的文案，缺失时回退到英文，再缺失返回 key 本身。
func T(l Language, key Key) string {
	if text, ok := catalog[Normalize(string(l))][key]; ok {
		return text
	}
	if text, ok := catalog[LanguageEnglish][key]; ok {
		return text
	}
	return string(key)
}
