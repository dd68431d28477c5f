package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/bartolsthoorn/gocplex/internal/bridgegen"
)

type stepStatus int

const (
	stepPassed stepStatus = iota
	stepWarning
	stepFailed
	stepSkipped
)

// report prints one line per generator stage.
type report struct {
	out      io.Writer
	passed   int
	warnings int
	failed   int
}

func newReport(out io.Writer) *report {
	return &report{out: out}
}

func (r *report) header(title string) {
	color.New(color.FgCyan, color.Bold).Fprintf(r.out, "━━━ %s ━━━\n", title)
}

func (r *report) step(name string, status stepStatus, msg string, err error) {
	var (
		icon string
		clr  *color.Color
	)
	switch status {
	case stepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
		r.passed++
	case stepWarning:
		icon, clr = "!", color.New(color.FgYellow)
		r.warnings++
	case stepFailed:
		icon, clr = "✗", color.New(color.FgRed)
		r.failed++
	default:
		icon, clr = "○", color.New(color.FgHiBlack)
	}

	clr.Fprintf(r.out, "  %s %s", icon, name)
	if msg != "" {
		color.New(color.FgHiBlack).Fprintf(r.out, " - %s", msg)
	}
	fmt.Fprintln(r.out)
	if err != nil && status != stepPassed {
		clr.Fprintf(r.out, "    └─ %s\n", err.Error())
	}
}

func (r *report) summary() {
	if r.failed > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(r.out, "━━━ Generation failed (%d passed, %d failed) ━━━\n", r.passed, r.failed)
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(r.out, "━━━ Generation done (%d passed, %d warnings) ━━━\n", r.passed, r.warnings)
}

// reportResult prints the discovery, codegen and link stages of a run.
func reportResult(r *report, res *bridgegen.Result, err error, strict bool) {
	failedAt := func(stage bridgegen.Stage) bool {
		return bridgegen.IsStage(err, stage)
	}

	switch d := res.Discovery; {
	case failedAt(bridgegen.StageDiscovery):
		r.step("discovery", stepFailed, "", err)
	case d != nil && d.Selected != nil:
		sel := d.Selected
		r.step("discovery", stepPassed, fmt.Sprintf("%s %s", sel.VersionSegment, sel.Root), nil)
	default:
		r.step("discovery", stepWarning, "no usable installation; using whitelist declarations", problems(d))
	}

	switch {
	case failedAt(bridgegen.StageCodegen):
		r.step("codegen", stepFailed, "", err)
	case res.OutputPath != "":
		r.step("codegen", stepPassed, res.OutputPath, nil)
	default:
		r.step("codegen", stepSkipped, "", nil)
	}

	switch {
	case res.LinkErr != nil && strict:
		r.step("link", stepFailed, "", res.LinkErr)
	case res.LinkErr != nil:
		r.step("link", stepWarning, "go build -tags cplex will fail to link", res.LinkErr)
	case res.OutputPath != "":
		r.step("link", stepPassed, fmt.Sprint(res.LDFlags), nil)
	default:
		r.step("link", stepSkipped, "", nil)
	}
}

func problems(d *bridgegen.Discovery) error {
	if d == nil || len(d.Problems) == 0 {
		return nil
	}
	errs := make([]error, len(d.Problems))
	for i, p := range d.Problems {
		errs[i] = p
	}
	return errors.Join(errs...)
}
