package main

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/profileopt/cutstock/internal/cuterr"
	"github.com/profileopt/cutstock/internal/model"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", cuterr.Validation("c1", "bad"), exitValidationRejected},
		{"constraint", cuterr.Constraint("c1", "bad"), exitValidationRejected},
		{"config", cuterr.Config("c1", "bad"), exitValidationRejected},
		{"internal", cuterr.Internal("c1", "x"), exitInternalInconsistency},
		{"cancelled", cuterr.CancelledErr("c1"), exitCancelled},
		{"not structured", errors.New("boom"), exitInternalInconsistency},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := exitCodeFor(c.err); got != c.want {
				t.Errorf("exitCodeFor(%v)=%d want %d", c.err, got, c.want)
			}
		})
	}
}

func TestExitCodeForInfeasibleKind(t *testing.T) {
	err := &cuterr.Error{Kind: cuterr.Infeasible}
	if got := exitCodeFor(err); got != exitInfeasible {
		t.Errorf("exitCodeFor(infeasible)=%d want %d", got, exitInfeasible)
	}
}

func TestMMToInches(t *testing.T) {
	cases := []struct {
		mm   int64
		want int64
	}{
		{0, 0},
		{254, 10},
		{25, 0},
	}
	for _, c := range cases {
		if got := mmToInches(c.mm); got != c.want {
			t.Errorf("mmToInches(%d)=%d want %d", c.mm, got, c.want)
		}
	}
}

func TestWriteFeetInchesSummary(t *testing.T) {
	p := model.Plan{
		Algorithm: "bfd",
		Totals:    model.Totals{StockCount: 1, Efficiency: 90.0},
		Bars: []model.Bar{
			{
				StockLength:     2540,
				ProfileType:     "P",
				RemainingLength: 254,
				Placements:      []model.Placement{{Length: 1270}},
			},
		},
	}
	var buf bytes.Buffer
	if err := writeFeetInchesSummary(&buf, p); err != nil {
		t.Fatalf("writeFeetInchesSummary: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Algorithm: bfd") {
		t.Errorf("missing algorithm line: %q", out)
	}
	if !strings.Contains(out, "Bar 1 (P") {
		t.Errorf("missing bar header: %q", out)
	}
	if !strings.Contains(out, "remaining") {
		t.Errorf("missing remaining line: %q", out)
	}
}

func TestLoadRequestRejectsMalformedJSON(t *testing.T) {
	tmp := t.TempDir() + "/bad.json"
	if err := os.WriteFile(tmp, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := loadRequest(tmp); err == nil {
		t.Errorf("expected error for malformed JSON")
	}
}

func TestLoadRequestRejectsMissingFile(t *testing.T) {
	if _, err := loadRequest("/nonexistent/path/request.json"); err == nil {
		t.Errorf("expected error for missing file")
	}
}
