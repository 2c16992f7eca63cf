package logger

import (
	"encoding/json"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// devEncoder is a custom encoder for development mode that outputs colored,
// human-readable logs with indented JSON for structured fields.
type devEncoder struct {
	zapcore.Encoder
	consoleEncoder zapcore.Encoder
	jsonEncoder    zapcore.Encoder
	pool           buffer.Pool
}

// newDevEncoder creates a development encoder with color support and JSON indentation.
func newDevEncoder(encoderConfig zapcore.EncoderConfig) zapcore.Encoder {
	consoleEnc := zapcore.NewConsoleEncoder(encoderConfig)
	return &devEncoder{
		Encoder:        consoleEnc,
		consoleEncoder: consoleEnc,
		jsonEncoder:    zapcore.NewJSONEncoder(encoderConfig),
		pool:           buffer.NewPool(),
	}
}

// EncodeEntry renders the entry header with the console encoder, colorizes
// the level, and appends structured fields as indented JSON.
func (e *devEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	consoleBuf, err := e.consoleEncoder.EncodeEntry(entry, nil)
	if err != nil {
		return nil, err
	}

	line := strings.TrimRight(consoleBuf.String(), "\n")
	line = colorizeLevel(line, entry.Level)

	if len(fields) > 0 {
		fieldBuf, encErr := e.jsonEncoder.EncodeEntry(entry, fields)
		if encErr != nil {
			return nil, encErr
		}

		var fieldsMap map[string]any
		if unmarshalErr := json.Unmarshal(fieldBuf.Bytes(), &fieldsMap); unmarshalErr != nil {
			line += " " + strings.TrimRight(fieldBuf.String(), "\n")
		} else {
			line = appendFields(line, fieldsMap)
		}
	}

	buf := e.pool.Get()
	buf.AppendString(line)
	buf.AppendString("\n")
	return buf, nil
}

// appendFields pretty-prints remaining structured fields below the entry header.
func appendFields(line string, fieldsMap map[string]any) string {
	// Drop fields already rendered in the header.
	for _, k := range []string{messageKey, levelKey, timeKey, callerKey, nameKey} {
		delete(fieldsMap, k)
	}

	if len(fieldsMap) == 0 {
		return line
	}

	pretty, err := json.MarshalIndent(fieldsMap, "", "  ")
	if err != nil {
		return line
	}
	return line + "\n" + string(pretty)
}

// colorizeLevel replaces the log level token in the line with a colored version.
func colorizeLevel(line string, level zapcore.Level) string {
	var colorFunc func(a ...any) string

	switch level {
	case zapcore.DebugLevel:
		colorFunc = color.New(color.FgCyan).SprintFunc()
	case zapcore.InfoLevel:
		colorFunc = color.New(color.FgGreen).SprintFunc()
	case zapcore.WarnLevel:
		colorFunc = color.New(color.FgYellow).SprintFunc()
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		colorFunc = color.New(color.FgRed, color.Bold).SprintFunc()
	default:
		return line
	}

	if token := level.CapitalString(); strings.Contains(line, token) {
		return strings.Replace(line, token, colorFunc(token), 1)
	}
	if token := level.String(); strings.Contains(line, token) {
		return strings.Replace(line, token, colorFunc(token), 1)
	}
	return line
}
