/*
Progress-bar rendering for nndb-cli, grounded directly in
ricardomaraschini-tagger's infra/progbar package (New/SetMax/SetCurrent/
Wait) — the same mpb.Progress + single mpb.Bar shape, generalized to poll
an HTTP endpoint instead of a local counter.
*/
package main

import (
	"context"

	"github.com/vbauerster/mpb/v6"
	"github.com/vbauerster/mpb/v6/decor"
)

// progressBar wraps one mpb bar for a single named procedure.
type progressBar struct {
	prog *mpb.Progress
	bar  *mpb.Bar
	name string
}

func newProgressBar(ctx context.Context, name string) *progressBar {
	return &progressBar{
		name: name,
		prog: mpb.NewWithContext(ctx, mpb.WithWidth(60)),
	}
}

// setTotal lazily creates the bar once the total is known (the coordinator
// reports total=0 until the workflow has scanned its work list).
func (p *progressBar) setTotal(total int64) {
	if p.bar != nil || total == 0 {
		return
	}
	p.bar = p.prog.Add(
		total,
		mpb.NewBarFiller(" ▮▮▯ "),
		mpb.PrependDecorators(decor.Name(p.name)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
}

func (p *progressBar) setCurrent(done int64) {
	if p.bar == nil {
		return
	}
	p.bar.SetCurrent(done)
}

func (p *progressBar) wait() {
	p.prog.Wait()
}
