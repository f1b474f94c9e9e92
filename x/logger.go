/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger opens a JSON logger writing to output, a file path or "stdout".
// Files are appended to.
func InitLogger(output string) (*Logger, error) {
	ws, closeFn, err := zap.Open(output)
	if err != nil {
		return nil, errors.Wrapf(err, "while opening log output %s", output)
	}
	l := NewLogger(ws)
	l.closeFn = closeFn
	return l, nil
}

// NewLogger returns a JSON logger writing to ws.
func NewLogger(ws zapcore.WriteSyncer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		ws, zap.DebugLevel)
	return &Logger{logger: zap.New(core)}
}

type Logger struct {
	logger  *zap.Logger
	closeFn func()
}

// AuditI logs msg at info level.  args are alternating keys and values.
func (l *Logger) AuditI(msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logger.Info(msg, fields(args)...)
}

// AuditE logs msg at error level.  args are alternating keys and values.
func (l *Logger) AuditE(msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logger.Error(msg, fields(args)...)
}

func fields(args []interface{}) []zap.Field {
	flds := make([]zap.Field, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		flds = append(flds, zap.Any(key, args[i+1]))
	}
	return flds
}

func (l *Logger) Sync() {
	if l == nil {
		return
	}
	_ = l.logger.Sync()
}

// Close flushes buffered entries and releases the output.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.Sync()
	if l.closeFn != nil {
		l.closeFn()
	}
}
