package slash

// Command 表示内置斜杠命令的标识符。
type Command string

const (
	CommandClear  Command = "clear"
	CommandReload Command = "reload"
	CommandFlows  Command = "flows"
	CommandCopy   Command = "copy"
	CommandQuit   Command = "quit"
	CommandExit   Command = "exit"
)

// Item 代表弹窗中的一行条目。
type Item struct {
	Command     Command
	Description string
}

// DisplayName 返回带前缀斜杠的展示名称。
func (i Item) DisplayName() string {
	return "/" + string(i.Command)
}

func builtinItems() []Item {
	return []Item{
		{Command: CommandClear, Description: "clear the conversation and the draft"},
		{Command: CommandReload, Description: "reload the flow catalog"},
		{Command: CommandFlows, Description: "choose a flow"},
		{Command: CommandCopy, Description: "copy the last output"},
		{Command: CommandQuit, Description: "quit"},
		{Command: CommandExit, Description: "quit"},
	}
}
