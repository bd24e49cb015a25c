package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// FlowLogger 记录一次 flow 调用的请求、流式分片、完成与错误。
type FlowLogger interface {
	Request(flowID string, input string, history int)
	Chunk(flowID string, chunk string, seq int)
	Complete(flowID string, chunks int)
	Error(flowID string, err error)
}

var flowLog FlowLogger = NewFlowLogger(nil)

// FlowLog 返回全局 flow 日志实例。
func FlowLog() FlowLogger {
	return flowLog
}

// SetFlowLog 覆盖全局 flow 日志实例，nil 重置为写入 root logger 的默认实现。
func SetFlowLog(l FlowLogger) {
	if l == nil {
		l = NewFlowLogger(nil)
	}
	flowLog = l
}

// StdFlowLogger 基于 logrus entry 输出。
type StdFlowLogger struct {
	entry *LogEntry
}

// NewFlowLogger 使用给定 entry；nil 时挂在 root logger 上。
func NewFlowLogger(entry *LogEntry) *StdFlowLogger {
	if entry == nil {
		entry = Named("flow")
	}
	return &StdFlowLogger{entry: entry}
}

func (l *StdFlowLogger) Request(flowID string, input string, history int) {
	l.with(flowID).WithField("history", history).Infof("-> invoke input=%s", sanitize(input))
}

func (l *StdFlowLogger) Chunk(flowID string, chunk string, seq int) {
	if !l.entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	l.with(flowID).WithField("seq", seq).Debugf("<- chunk text=%s", sanitize(chunk))
}

func (l *StdFlowLogger) Complete(flowID string, chunks int) {
	l.with(flowID).WithField("chunks", chunks).Info("<- completed")
}

func (l *StdFlowLogger) Error(flowID string, err error) {
	l.with(flowID).Errorf("!! invoke failed: %v", err)
}

func (l *StdFlowLogger) with(flowID string) *LogEntry {
	if flowID == "" {
		return l.entry
	}
	return l.entry.WithField("flow", flowID)
}

// NoopFlowLogger 丢弃所有输出，测试用。
type NoopFlowLogger struct{}

func (NoopFlowLogger) Request(string, string, int) {}
func (NoopFlowLogger) Chunk(string, string, int)   {}
func (NoopFlowLogger) Complete(string, int)        {}
func (NoopFlowLogger) Error(string, error)         {}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	return strings.ReplaceAll(text, "\r", `\r`)
}
