package fwlgr

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ZAP_SOURCE_NAME names the source of zap entries logged without a logger name.
const ZAP_SOURCE_NAME = "zap"

// ZapCore is a zapcore.Core routing entries of zap-based libraries into the
// pipeline. The zap logger name selects the source, fields are rendered as
// "key=value" after the message text.
//
//	zlog := zap.New(lg.ZapCore())
type ZapCore struct {
	logging *Logging
	fields  []zapcore.Field
}

// ZapCore returns a zap core logging into this context.
func (lg *Logging) ZapCore() *ZapCore {
	return &ZapCore{logging: lg}
}

func zapToLevel(l zapcore.Level) LogLevel {
	switch {
	case l < zapcore.InfoLevel:
		return LVL_DEBUG
	case l == zapcore.InfoLevel:
		return LVL_INFO
	case l == zapcore.WarnLevel:
		return LVL_WARNING
	default:
		return LVL_ERROR
	}
}

func (c *ZapCore) logger(name string) *Logger {
	if name == "" {
		name = ZAP_SOURCE_NAME
	}
	return c.logging.Named(name)
}

// Enabled implements zapcore.LevelEnabler. The logger name is not known here,
// filtering happens in Check against the level of the named source.
func (c *ZapCore) Enabled(zapcore.Level) bool {
	return true
}

func (c *ZapCore) With(fields []zapcore.Field) zapcore.Core {
	return &ZapCore{
		logging: c.logging,
		fields:  append(slices.Clip(c.fields), fields...),
	}
}

func (c *ZapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.logger(ent.LoggerName).Enabled(zapToLevel(ent.Level)) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ZapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	text := ent.Message
	all := append(slices.Clip(c.fields), fields...)
	if len(all) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range all {
			f.AddTo(enc)
		}
		var sb strings.Builder
		sb.WriteString(text)
		for _, key := range slices.Sorted(maps.Keys(enc.Fields)) {
			fmt.Fprintf(&sb, " %s=%v", key, enc.Fields[key])
		}
		text = sb.String()
	}
	c.logger(ent.LoggerName).Log(zapToLevel(ent.Level), text)
	return nil
}

// Sync gives the appenders a chance to forward pending records.
func (c *ZapCore) Sync() error {
	c.logging.Probe()
	return nil
}
