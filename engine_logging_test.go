package bitguard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"
)

func TestRefreshRejectionLogsReasonWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	env := newTestEnv(t, testConfig(), func(b *Builder) { b.WithLogger(logger) })
	p := env.createPrincipal(t, "alice", "correct-password-123", true)

	pair, err := env.engine.IssueTokenPair(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	forged := pair.RefreshToken[:strings.LastIndexByte(pair.RefreshToken, '.')+1] + "AAAA"

	if _, err := env.engine.Refresh(context.Background(), forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"reason":"bad_signature"`) {
		t.Fatalf("expected bad_signature reason in log, got %s", out)
	}
	if !strings.Contains(out, `"claimed_subject_id":`+strconv.FormatInt(p.ID, 10)) {
		t.Fatalf("expected claimed subject in log, got %s", out)
	}
	if strings.Contains(out, pair.RefreshToken) || strings.Contains(out, forged) {
		t.Fatal("tokens must never be logged")
	}
}
