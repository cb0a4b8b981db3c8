package observer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dcshock/autodpp/pipeline"
)

type summary string

func (s summary) Summary() string { return string(s) }

func samplePipeline(failAt int) *pipeline.Pipeline {
	stage := func(i int, out string) pipeline.Stage {
		return func(ctx context.Context, input interface{}) (interface{}, error) {
			if i == failAt {
				return nil, errors.New("boom")
			}
			return summary(out), nil
		}
	}
	return &pipeline.Pipeline{
		Name:       "dpp9",
		Stages:     []pipeline.Stage{stage(0, "3 rows"), stage(1, "fitted")},
		StageNames: []string{"load", "fit"},
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLogObserver(logger)

	if _, err := samplePipeline(-1).RunWithInput(context.Background(), nil, &pipeline.RunOptions{Observer: obs, RunID: "r1"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`msg="run started"`, "stage=load", "output=\"3 rows\"", `msg="run finished"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	_, _ = samplePipeline(1).RunWithInput(context.Background(), nil, &pipeline.RunOptions{Observer: obs})
	if !strings.Contains(buf.String(), `msg="stage failed"`) || !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("failure not logged:\n%s", buf.String())
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()
	if _, err := samplePipeline(-1).RunWithInput(ctx, nil, &pipeline.RunOptions{Observer: m}); err != nil {
		t.Fatal(err)
	}
	_, _ = samplePipeline(1).RunWithInput(ctx, nil, &pipeline.RunOptions{Observer: m})

	path := filepath.Join(t.TempDir(), "autodpp.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`autodpp_training_runs_total{pipeline="dpp9",status="success"} 1`,
		`autodpp_training_runs_total{pipeline="dpp9",status="failed"} 1`,
		`autodpp_stage_duration_seconds_count{pipeline="dpp9",stage="load"} 2`,
		`autodpp_stage_duration_seconds_count{pipeline="dpp9",stage="fit"} 2`,
		`autodpp_stage_errors_total{pipeline="dpp9",stage="fit"} 1`,
		`autodpp_last_success_timestamp_seconds{pipeline="dpp9"}`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestLedger_RecordsRunsAndStages(t *testing.T) {
	l, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	ctx := context.Background()

	if _, err := samplePipeline(-1).RunWithInput(ctx, summary("data/train"), &pipeline.RunOptions{Observer: l, RunID: "ok"}); err != nil {
		t.Fatal(err)
	}
	if _, err := samplePipeline(1).RunWithInput(ctx, nil, &pipeline.RunOptions{Observer: l, RunID: "bad"}); err == nil {
		t.Fatal("expected failure")
	}

	runs, err := l.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs: got %d", len(runs))
	}
	byID := map[string]RunRecord{}
	for _, r := range runs {
		byID[r.RunID] = r
	}
	ok := byID["ok"]
	if ok.Status != "success" || ok.Name != "dpp9" || ok.Payload != "data/train" || ok.Result != "fitted" || ok.FinishedAt.IsZero() {
		t.Errorf("ok run: %+v", ok)
	}
	bad := byID["bad"]
	if bad.Status != "failed" || !strings.Contains(bad.Error, "boom") {
		t.Errorf("bad run: %+v", bad)
	}

	stages, err := l.Stages(ctx, "bad")
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 2 {
		t.Fatalf("stages: got %d", len(stages))
	}
	if stages[0].Name != "load" || stages[0].Status != "success" || stages[0].Output != "3 rows" {
		t.Errorf("stage 0: %+v", stages[0])
	}
	if stages[1].Name != "fit" || stages[1].Status != "failed" || stages[1].Error != "boom" {
		t.Errorf("stage 1: %+v", stages[1])
	}
}
