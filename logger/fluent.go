package logger

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// poster is the part of *fluent.Fluent the handler needs.
type poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler forwards records to Fluent Bit, tagged by level.
type FluentHandler struct {
	client poster
	level  slog.Level
	attrs  map[string]any
	group  string
}

func NewFluentHandler(client poster, level slog.Level) *FluentHandler {
	return &FluentHandler{client: client, level: level, attrs: map[string]any{}}
}

func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]any, len(h.attrs)+r.NumAttrs()+3)
	for k, v := range h.attrs {
		data[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(data, h.group, a)
		return true
	})
	data["level"] = strings.ToLower(r.Level.String())
	data["message"] = r.Message
	data["timestamp"] = r.Time.UTC().Format(time.RFC3339Nano)
	return h.client.Post(strings.ToLower(r.Level.String()), data)
}

func (h *FluentHandler) put(data map[string]any, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.put(data, key, ga)
		}
		return
	}
	if err, ok := a.Value.Any().(error); ok {
		data[key] = err.Error()
		return
	}
	data[key] = a.Value.Any()
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		h.put(next.attrs, h.group, a)
	}
	return next
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return next
}

func (h *FluentHandler) clone() *FluentHandler {
	attrs := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &FluentHandler{client: h.client, level: h.level, attrs: attrs, group: h.group}
}
