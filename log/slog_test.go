package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"testing"
)

type setupType struct {
	logger *RelayLogger
	buffer bytes.Buffer
}

func beforeEach(t *testing.T) *setupType {
	var r setupType

	err := InitLoggerWithWriter("info", "json", &r.buffer, false)
	if err != nil {
		t.Fatal(err)
	}

	r.logger = GetLogger()

	return &r
}

type logType struct {
	Time   string
	Level  string
	Source struct {
		Function string
		File     string
		Line     int
	}
	Msg          string
	Stack        string
	Error        string
	Pipeline     string `json:"pipeline"`
	PipelineKind string `json:"pipeline_kind"`
	Lane         string `json:"lane"`
}

func parseResult(setup *setupType, t *testing.T) (string, logType) {
	raw := setup.buffer.String()
	var parsed logType

	err := json.Unmarshal(setup.buffer.Bytes(), &parsed)
	if err != nil {
		t.Fatalf("fail to parse log: %v: %s", err, raw)
	}

	return raw, parsed
}

func TestInvalidSettings(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerWithWriter("verbose", "json", &buf, false); err == nil {
		t.Fatal("unknown level accepted")
	}
	if err := InitLoggerWithWriter("info", "xml", &buf, false); err == nil {
		t.Fatal("unknown format accepted")
	}
	if err := InitLogger("info", "json", "file", false); err == nil {
		t.Fatal("unknown output accepted")
	}
}

func TestLogLevel(t *testing.T) {
	setup := beforeEach(t)

	setup.logger.log(slog.LevelDebug, 0, "test")
	if 0 < setup.buffer.Len() {
		t.Fatalf("debug log is output: %s", setup.buffer.String())
	}
}

func TestLogLog(t *testing.T) {
	setup := beforeEach(t)

	setup.logger.log(slog.LevelInfo, 0, "test")
	raw, r := parseResult(setup, t)

	if r.Level != "INFO" {
		t.Fatalf("mismatch level: %s", raw)
	}

	if m, err := regexp.MatchString(`/log.TestLogLog$`, r.Source.Function); err != nil || !m {
		t.Fatalf("mismatch source.function: %v", raw)
	}
}

func TestLogError(t *testing.T) {
	setup := beforeEach(t)

	setup.logger.Error("testerr", fmt.Errorf("dummy"))
	raw, r := parseResult(setup, t)

	if r.Level != "ERROR" {
		t.Fatalf("mismatch level: %s", raw)
	}

	if m, err := regexp.MatchString(`/log.TestLogError$`, r.Source.Function); err != nil || !m {
		t.Fatalf("mismatch source.function: %v", raw)
	}

	if r.Error != "dummy" {
		t.Fatalf("mismatch error: %s", raw)
	}

	if r.Stack == "" {
		t.Fatalf("stack is missing: %s", raw)
	}
}

func TestLogWarnErrorContext(t *testing.T) {
	setup := beforeEach(t)

	setup.logger.WarnErrorContext(context.TODO(), "retrying", fmt.Errorf("connection refused"))
	raw, r := parseResult(setup, t)

	if r.Level != "WARN" {
		t.Fatalf("mismatch level: %s", raw)
	}
	if r.Error != "connection refused" {
		t.Fatalf("mismatch error: %s", raw)
	}
}

func TestLogWithPipeline(t *testing.T) {
	setup := beforeEach(t)

	setup.logger.WithPipeline("a-to-b", "messages").WithLane("00000001", "a", "b").InfoContext(context.TODO(), "hello")
	raw, r := parseResult(setup, t)

	if r.Pipeline != "a-to-b" || r.PipelineKind != "messages" {
		t.Fatalf("mismatch pipeline attributes: %s", raw)
	}
	if r.Lane != "00000001" {
		t.Fatalf("mismatch lane: %s", raw)
	}
}
