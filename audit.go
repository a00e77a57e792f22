package authsession

import (
	"io"

	"go.uber.org/zap"

	"github.com/MrEthical07/authsession/internal/audit"
)

// AuditEvent is one session lifecycle record. It never carries token values.
type AuditEvent = audit.Event

// AuditSink receives audit events on the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops every event.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers events to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink logs events through zap.
type ZapSink = audit.ZapSink

// Audit event types.
const (
	AuditLogin          = audit.EventLogin
	AuditLoginFailed    = audit.EventLoginFailed
	AuditRegister       = audit.EventRegister
	AuditRegisterFailed = audit.EventRegisterFailed
	AuditLogout         = audit.EventLogout
	AuditRefresh        = audit.EventRefresh
	AuditRefreshFailed  = audit.EventRefreshFailed
	AuditSessionCleared = audit.EventSessionCleared
	AuditSessionRestore = audit.EventSessionRestore
)

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] logging under the "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}
