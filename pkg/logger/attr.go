package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func optional(key string, v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any(key, v)
}

// PrincipalID records the subject being verified under "principal_id".
func PrincipalID(id any) slog.Attr { return optional("principal_id", id) }

// FactorID records a factor identifier under "factor_id".
func FactorID(id any) slog.Attr { return optional("factor_id", id) }

// FactorType records the factor kind (TOTP, SMS, EMAIL, BACKUP_CODE) under "factor_type".
func FactorType(kind string) slog.Attr { return slog.String("factor_type", kind) }

// Channel records the delivery channel under "channel".
func Channel(name string) slog.Attr { return slog.String("channel", name) }

// ClientIP records the caller address under "client_ip". Empty values are omitted.
func ClientIP(ip string) slog.Attr {
	if ip == "" {
		return slog.Attr{}
	}
	return slog.String("client_ip", ip)
}

// RequestID records the request identifier under "request_id".
func RequestID(id any) slog.Attr { return optional("request_id", id) }

// MessageID records a provider message identifier under "message_id".
func MessageID(id any) slog.Attr { return optional("message_id", id) }

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
