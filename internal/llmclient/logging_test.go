package llmclient

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"
)

func TestWithLogging_LogsRequestAndResponse(t *testing.T) {
	var buf bytes.Buffer
	inner := &flakyClient{succeed: true}
	cli := WithLogging(log.New(&buf, "", 0))(inner)

	_, err := cli.Generate(context.Background(), "prompt text", GenerateOptions{Model: "m"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "LLM request (flaky)") {
		t.Fatalf("request not logged: %q", out)
	}
	if !strings.Contains(out, "LLM response (flaky)") {
		t.Fatalf("response not logged: %q", out)
	}
}

func TestWithLogging_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	inner := &flakyClient{failWith: errors.New("boom")}
	cli := WithLogging(log.New(&buf, "", 0))(inner)

	if _, err := cli.Generate(context.Background(), "p", GenerateOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(buf.String(), "failed: boom") {
		t.Fatalf("failure not logged: %q", buf.String())
	}
}

func TestWithLogging_ComposesUnderRetry(t *testing.T) {
	var buf bytes.Buffer
	inner := &flakyClient{failWith: errors.New("boom")}
	cli := Retry(2, time.Millisecond)(WithLogging(log.New(&buf, "", 0))(inner))

	if _, err := cli.Generate(context.Background(), "p", GenerateOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if got := strings.Count(buf.String(), "failed: boom"); got != 2 {
		t.Fatalf("logged attempts: got %d, want 2", got)
	}
}
