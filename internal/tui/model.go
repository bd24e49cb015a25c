package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowchat/internal/flow"
	"flowchat/internal/history"
	"flowchat/internal/i18n"
	"flowchat/internal/logger"
	"flowchat/internal/page"
	"flowchat/internal/promptflow"
	"flowchat/internal/scroll"
	"flowchat/internal/tui/render"
	"flowchat/internal/tui/slash"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var log = logger.Named("tui")

type Options struct {
	Context  context.Context
	Chat     *promptflow.Chat
	Titles   page.TitleLookup
	Route    page.Route
	Language string
	// History 为 nil 时不持久化已发送的草稿。
	History *history.Store
	// Reload 重新读取 flow 列表，供 /reload 使用。
	Reload func(ctx context.Context) ([]flow.Descriptor, error)
	// Clipboard 默认写入系统剪贴板。
	Clipboard func(string) error
	// MarkdownStyle 为空时按终端背景自动选择。
	MarkdownStyle string
}

type chatEventMsg struct {
	Event promptflow.Event
}

type chatClosedMsg struct{}

type flowsReloadedMsg struct {
	Flows []flow.Descriptor
	Err   error
}

type noticeMsg struct {
	Text string
}

type titleMsg struct {
	Title string
}

type Model struct {
	ctx        context.Context
	chat       *promptflow.Chat
	controller *page.Controller
	scroll     *scroll.Tracker
	textarea   textarea.Model
	spin       spinner.Model
	slash      *slash.State
	selector   flowSelector
	browser    history.Browser
	history    *history.Store
	markdown   *render.Markdown
	reload     func(ctx context.Context) ([]flow.Descriptor, error)
	copy       func(string) error
	sub        <-chan promptflow.Event
	lang       i18n.Language
	title      string
	notice     string
	width      int
	height     int
}

func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	lang := i18n.Normalize(opts.Language)

	ti := textarea.New()
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.SetWidth(90)
	ti.SetHeight(1)
	ti.ShowLineNumbers = false
	ti.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	m := &Model{
		ctx:      ctx,
		chat:     opts.Chat,
		scroll:   scroll.New(90, 12),
		textarea: ti,
		spin:     spin,
		slash:    slash.NewState(),
		selector: newFlowSelector(),
		history:  opts.History,
		markdown: render.NewMarkdown(opts.MarkdownStyle),
		reload:   opts.Reload,
		copy:     copyFn,
		lang:     lang,
		width:    90,
		height:   24,
	}
	draft := &page.Draft{}
	draft.Subscribe(func(s string) {
		if m.textarea.Value() != s {
			m.textarea.SetValue(s)
			m.setComposerHeight()
		}
	})
	m.controller = page.NewController(page.Options{
		Chat:     opts.Chat,
		Titles:   opts.Titles,
		Follower: m.scroll,
		Draft:    draft,
		Language: lang,
	})
	m.sub = opts.Chat.Subscribe()
	m.controller.Load(opts.Route)
	m.title = m.controller.Title(ctx)
	m.setComposerHeight()

	if opts.History != nil {
		if texts, err := opts.History.Texts(); err != nil {
			log.Warnf("load prompt history: %v", err)
		} else {
			m.browser.Set(texts)
		}
	}
	m.refreshTranscript()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listenChat(), m.spin.Tick, textarea.Blink)
}

func (m *Model) listenChat() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return chatClosedMsg{}
		}
		return chatEventMsg{Event: ev}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(maxInt(10, msg.Width-4))
		return m.finish(cmds...)
	case chatEventMsg:
		if msg.Event.Kind == promptflow.FlowsChanged {
			m.controller.FlowsChanged()
		}
		if msg.Event.Kind == promptflow.StatusChanged && !m.chat.Loading() {
			cmds = append(cmds, m.lookupTitle())
		}
		cmds = append(cmds, m.listenChat())
		return m.finish(cmds...)
	case chatClosedMsg:
		return m.finish(cmds...)
	case flowsReloadedMsg:
		if msg.Err != nil {
			m.notice = msg.Err.Error()
			return m.finish(cmds...)
		}
		m.chat.SetAvailableFlows(msg.Flows)
		m.controller.FlowsChanged()
		m.notice = i18n.T(m.lang, i18n.FlowsReloaded)
		return m.finish(cmds...)
	case titleMsg:
		m.title = msg.Title
		return m.finish(cmds...)
	case noticeMsg:
		m.notice = msg.Text
		return m.finish(cmds...)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		return m.finish(cmds...)
	case tea.MouseMsg:
		if cmd := m.scroll.HandleUpdate(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m.finish(cmds...)
	case tea.KeyMsg:
		if m.selector.open {
			choice, done, cmd := m.selector.Update(msg)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			if done && choice != "" {
				if err := m.controller.SelectFlow(choice); err != nil {
					m.notice = err.Error()
				}
			}
			return m.finish(cmds...)
		}
		if cmd, handled := m.handleKey(msg); handled {
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m.finish(cmds...)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.afterEdit()
	return m.finish(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit, true
	}
	if action, handled := m.slash.HandleKey(key); handled {
		return m.applySlash(action), true
	}
	switch msg.Type {
	case tea.KeyPgUp:
		m.scroll.PageUpward()
		return nil, true
	case tea.KeyPgDown:
		m.scroll.PageDownward()
		return nil, true
	case tea.KeyHome:
		m.scroll.Top()
		return nil, true
	case tea.KeyEnd:
		m.scroll.Bottom()
		return nil, true
	}
	switch key {
	case "alt+enter":
		m.textarea.InsertString("\n")
		m.afterEdit()
		return nil, true
	case "enter":
		return m.submit(), true
	case "ctrl+r":
		m.reset()
		return nil, true
	case "ctrl+f":
		return m.openSelector(), true
	case "ctrl+y":
		return m.copyLast(), true
	case "ctrl+p":
		if text, ok := m.browser.Prev(m.textarea.Value()); ok {
			m.controller.Draft().SetContent(text)
		}
		return nil, true
	case "ctrl+n":
		if text, ok := m.browser.Next(); ok {
			m.controller.Draft().SetContent(text)
		}
		return nil, true
	}
	return nil, false
}

// afterEdit 把输入框内容同步到草稿与斜杠弹窗。
func (m *Model) afterEdit() {
	value := m.textarea.Value()
	if value != m.controller.Draft().Content() {
		m.controller.Draft().SetContent(value)
		m.browser.ResetBrowsing()
	}
	m.slash.SyncInput(value)
	m.setComposerHeight()
}

func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		action := m.slash.ResolveSubmit(text)
		if action.Kind != slash.ActionNone {
			m.slash.Close()
			return m.applySlash(action)
		}
	}
	if m.controller.InputDisabled() {
		return nil
	}
	m.notice = ""
	flowID := ""
	if f := m.chat.Flow(); f != nil {
		flowID = f.Identifier
	}
	if err := m.controller.Send(m.ctx); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.browser.Add(text)
	if m.history != nil {
		if err := m.history.Append(text, flowID); err != nil {
			log.Warnf("append prompt history: %v", err)
		}
	}
	return nil
}

func (m *Model) applySlash(action slash.Action) tea.Cmd {
	switch action.Kind {
	case slash.ActionInsert:
		m.controller.Draft().SetContent(action.NewValue)
		m.textarea.CursorEnd()
		return nil
	case slash.ActionError:
		m.notice = i18n.T(m.lang, i18n.UnknownCommand)
		return nil
	case slash.ActionSubmitCommand:
	default:
		return nil
	}
	m.controller.Draft().SetContent("")
	switch action.Command {
	case slash.CommandClear:
		m.reset()
	case slash.CommandReload:
		return m.reloadFlows()
	case slash.CommandFlows:
		return m.openSelector()
	case slash.CommandCopy:
		return m.copyLast()
	case slash.CommandQuit, slash.CommandExit:
		return tea.Quit
	}
	return nil
}

func (m *Model) reset() {
	if m.controller.ResetDisabled() {
		return
	}
	m.controller.Reset()
	m.scroll.SetFollowing(true)
	m.browser.ResetBrowsing()
	m.notice = ""
}

func (m *Model) openSelector() tea.Cmd {
	current := ""
	if f := m.chat.Flow(); f != nil {
		current = f.Identifier
	}
	return m.selector.Open(m.controller.FlowOptions(), current)
}

// lookupTitle 在 Update 之外查询标题，存储可能是远端的。
func (m *Model) lookupTitle() tea.Cmd {
	ctx := m.ctx
	controller := m.controller
	return func() tea.Msg {
		return titleMsg{Title: controller.Title(ctx)}
	}
}

func (m *Model) reloadFlows() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	ctx := m.ctx
	reload := m.reload
	return func() tea.Msg {
		flows, err := reload(ctx)
		return flowsReloadedMsg{Flows: flows, Err: err}
	}
}

func (m *Model) copyLast() tea.Cmd {
	text := lastOutput(m.chat.Messages())
	if text == "" {
		m.notice = i18n.T(m.lang, i18n.NothingToCopy)
		return nil
	}
	copyFn := m.copy
	lang := m.lang
	return func() tea.Msg {
		if err := copyFn(text); err != nil {
			return noticeMsg{Text: fmt.Sprintf("copy failed: %v", err)}
		}
		return noticeMsg{Text: i18n.T(lang, i18n.Copied)}
	}
}

func lastOutput(msgs []promptflow.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == flow.RoleAssistant && strings.TrimSpace(msgs[i].Content) != "" {
			return msgs[i].Content
		}
	}
	return ""
}

func (m *Model) setComposerHeight() {
	lines := strings.Count(m.textarea.Value(), "\n") + 1
	if lines > 6 {
		lines = 6
	}
	if m.textarea.Height() != lines {
		m.textarea.SetHeight(lines)
	}
}

func (m *Model) finish(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	m.layout()
	m.refreshTranscript()
	return m, tea.Batch(cmds...)
}

// layout 根据当前各区域高度计算会话区大小。
func (m *Model) layout() {
	m.textarea.Placeholder = m.placeholder()
	used := lipgloss.Height(m.header()) + lipgloss.Height(m.footer())
	height := m.height - used
	if height < 3 {
		height = 3
	}
	m.scroll.Resize(maxInt(10, m.width), height)
}

func (m *Model) refreshTranscript() {
	msgs := m.chat.Messages()
	loading := -1
	if n := len(msgs); n > 0 && m.controller.MessageLoading(n-1) {
		loading = n - 1
	}
	lines := render.RenderMessages(msgs, render.MessagesOptions{
		Width:        maxInt(10, m.width-2),
		LoadingIndex: loading,
		Spinner:      m.spin.View(),
		Thinking:     i18n.T(m.lang, i18n.Thinking),
		Markdown:     m.markdown,
	})
	m.scroll.SetLines(render.LinesToStrings(lines))
}

func (m *Model) placeholder() string {
	if desc := strings.TrimSpace(m.controller.Description()); desc != "" {
		return desc
	}
	return i18n.T(m.lang, i18n.InputPlaceholder)
}

func (m *Model) header() string {
	title := titleStyle.Render(render.Truncate(m.title, maxInt(10, m.width-2)))
	label := i18n.T(m.lang, i18n.NoFlow)
	if f := m.chat.Flow(); f != nil {
		label = flowStyle.Render(f.Label())
	}
	flowLine := fmt.Sprintf("%s: %s  %s", i18n.T(m.lang, i18n.SelectFlow), label, hintStyle.Render("(ctrl+f)"))
	return lipgloss.JoinVertical(lipgloss.Left, title, flowLine)
}

func (m *Model) footer() string {
	parts := []string{}
	if popup := m.slash.View(m.width - 4); popup != "" {
		parts = append(parts, modalStyle.Render(popup))
	}
	parts = append(parts, renderPane("", m.textarea.View(), m.width))
	if errText := m.chat.Error(); errText != "" {
		parts = append(parts, errorStyle.Width(maxInt(10, m.width)).Render(errText))
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	parts = append(parts, hintStyle.Padding(0, 1).Render(render.Truncate(i18n.T(m.lang, i18n.Hints), maxInt(10, m.width-2))))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) body() string {
	if m.controller.ShowPlaceholder() {
		logo := logoStyle.Render("⟡ prompt flow")
		hint := hintStyle.Render(i18n.T(m.lang, i18n.EmptyState))
		block := lipgloss.JoinVertical(lipgloss.Center, logo, "", hint)
		return lipgloss.Place(maxInt(10, m.width), m.scroll.Height, lipgloss.Center, lipgloss.Center, block)
	}
	return m.scroll.View()
}

func (m *Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left, m.header(), m.body(), m.footer())
	if m.selector.open {
		overlay := m.selector.View(i18n.T(m.lang, i18n.SelectFlow), m.width)
		return lipgloss.JoinVertical(lipgloss.Left, content, overlay)
	}
	return content
}

// Controller 暴露页面编排器，便于测试与外部驱动。
func (m *Model) Controller() *page.Controller {
	return m.controller
}

// Result 返回 TUI 退出时的会话信息。
type Result struct {
	ChatID   string
	Messages []promptflow.Message
}

// Run 封装 Bubble Tea 入口，返回最终的会话结果。
func Run(opts Options) (Result, error) {
	if opts.Chat == nil {
		return Result{}, errors.New("tui: chat is required")
	}
	program := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := program.Run()
	if err != nil {
		return Result{}, err
	}
	m, ok := final.(*Model)
	if !ok {
		return Result{}, errors.New("unexpected tui model")
	}
	return Result{ChatID: m.chat.ChatID(), Messages: m.chat.Messages()}, nil
}
