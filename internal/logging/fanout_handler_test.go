package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected the single live handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the debug handler")
	}

	slog.New(h).Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Fatal("info handler should not receive debug records")
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler should receive debug records")
	}
}

func TestFanoutHandlerCarriesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("source_id", "prince-charles")}).WithGroup("run"))
	logger.Info("recorded", slog.Int("count", 42))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		for _, want := range []string{`"source_id":"prince-charles"`, `"run":{"count":42}`} {
			if !bytes.Contains(buf.Bytes(), []byte(want)) {
				t.Fatalf("handler %d missing %s in %s", i, want, buf.String())
			}
		}
	}
}
