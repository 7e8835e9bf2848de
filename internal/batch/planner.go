package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"liteconvert/internal/convert"
	"liteconvert/internal/naming"
)

// Plan is the ordered expansion of a batch: every input is represented by
// at least one item, incompatible ones as pre-failed items.
type Plan struct {
	Items    []*WorkItem
	Warnings []string
}

// Planner expands inputs into work items and resolves their output paths.
type Planner struct {
	pages    convert.PageCounter
	conflict *naming.ConflictResolver
}

// NewPlanner builds a planner probing PDFs with MuPDF and checking real
// disk state for conflicts.
func NewPlanner() *Planner {
	return &Planner{pages: convert.FitzPageCounter{}, conflict: naming.NewConflictResolver()}
}

// NewPlannerWith injects the page prober and conflict resolver. Intended
// for tests.
func NewPlannerWith(pages convert.PageCounter, conflict *naming.ConflictResolver) *Planner {
	return &Planner{pages: pages, conflict: conflict}
}

// Plan expands inputs for mode, then resolves names and conflicts in
// construction order. An empty input list plans zero items. Inputs whose
// format does not match the mode become pre-failed items so they still
// appear in the final result without consuming a worker slot.
func (p *Planner) Plan(inputs []string, mode convert.Mode, opts convert.Options) (*Plan, error) {
	if _, ok := convert.ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	opts = opts.Normalize()

	plan := &Plan{}
	if mode.Merged() {
		p.expandMerged(plan, inputs, mode)
	} else {
		p.expandPerInput(plan, inputs, mode, opts)
	}

	p.resolvePaths(plan, mode, opts)
	return plan, nil
}

// expandPerInput handles the 1:1 modes and PDF page fan-out.
func (p *Planner) expandPerInput(plan *Plan, inputs []string, mode convert.Mode, opts convert.Options) {
	for _, input := range inputs {
		src := SourceFile{Path: input, Format: convert.DetectFormat(input)}
		if !mode.Accepts(src.Format) {
			plan.Items = append(plan.Items, preFailed(src, mode))
			continue
		}

		if !mode.FansOutPages() {
			plan.Items = append(plan.Items, newItem(src, mode, -1, ""))
			continue
		}

		count, err := p.pages.PageCount(input)
		if err != nil || count == 0 {
			if err == nil {
				err = convert.NewCorruptSource("pdf has no pages", nil)
			}
			item := newItem(src, mode, -1, "")
			item.finish(StatusFailed, err)
			plan.Items = append(plan.Items, item)
			continue
		}
		src.Pages = count

		pages := ParsePageRange(opts.PageRange, count)
		if len(pages) == 0 {
			// A selection matching no page falls back to the whole document
			// so the input still shows up in the result.
			w := fmt.Sprintf("page range %q selects nothing in %q, converting all %d pages",
				opts.PageRange, filepath.Base(input), count)
			log.Warn().Str("input", input).Msg(w)
			plan.Warnings = append(plan.Warnings, w)
			pages = ParsePageRange("", count)
		}
		for _, page := range pages {
			plan.Items = append(plan.Items, newItem(src, mode, page-1, ""))
		}
	}
}

// expandMerged folds every compatible input into one merge-group item,
// placed at the position of its first member. Incompatible inputs keep
// their own pre-failed items.
func (p *Planner) expandMerged(plan *Plan, inputs []string, mode convert.Mode) {
	group := uuid.NewString()
	var merged *WorkItem
	for _, input := range inputs {
		src := SourceFile{Path: input, Format: convert.DetectFormat(input)}
		if !mode.Accepts(src.Format) {
			plan.Items = append(plan.Items, preFailed(src, mode))
			continue
		}
		if merged == nil {
			merged = newItem(src, mode, -1, group)
			plan.Items = append(plan.Items, merged)
			continue
		}
		merged.Sources = append(merged.Sources, src)
	}
}

// resolvePaths assigns every item its final output path. The index width is
// fixed from the planned batch size before any name is produced, and each
// accepted path is reserved before the next item is resolved.
func (p *Planner) resolvePaths(plan *Plan, mode convert.Mode, opts convert.Options) {
	width := naming.IndexWidth(len(plan.Items))
	for i, item := range plan.Items {
		first := item.Sources[0]
		ctx := naming.Context{
			Name:       stem(first.Path),
			Ext:        mode.TargetExt(),
			Index:      i + 1,
			IndexWidth: width,
			Page:       item.Page + 1,
			Mode:       string(mode),
		}

		name, warnings := naming.Resolve(opts.NamingPattern, ctx)
		for _, w := range warnings {
			log.Warn().Str("input", first.Path).Msg(w)
			plan.Warnings = append(plan.Warnings, w)
		}

		outDir := opts.OutputDir
		if outDir == "" {
			outDir = filepath.Dir(first.Path)
		}
		candidate := filepath.Join(outDir, name)

		// Pre-failed items produce no output and must not block a real
		// item's path.
		if item.Status.Terminal() {
			item.OutputPath = candidate
			continue
		}

		final, action := p.conflict.Resolve(candidate, opts.OverwritePolicy)
		item.OutputPath = final
		if action == naming.Skip {
			item.finish(StatusSkipped, nil)
		}
	}
}

func newItem(src SourceFile, mode convert.Mode, page int, group string) *WorkItem {
	return &WorkItem{
		ID:      uuid.NewString(),
		Sources: []SourceFile{src},
		Mode:    mode,
		Page:    page,
		GroupID: group,
		Status:  StatusPending,
	}
}

func preFailed(src SourceFile, mode convert.Mode) *WorkItem {
	item := newItem(src, mode, -1, "")
	item.finish(StatusFailed, convert.NewUnsupportedInput(
		fmt.Sprintf("%s input %q not supported by mode %s", src.Format, filepath.Base(src.Path), mode), nil))
	return item
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
