// Package markup turns the answer text of a text-generation service into an
// HTML fragment with MathJax delimiters.
//
// The rewrite is an ordered list of named stages. Order matters: later
// stages look for markers that earlier stages insert, and the paragraph
// wrap inspects blocks produced by the first two stages.
package markup

import "github.com/KaramelBytes/mathmatrix/internal/metrics"

// Stage is one named rewrite step.
type Stage struct {
	Name  string
	Apply func(string) string
}

// StageResult records the output of a stage during Trace.
type StageResult struct {
	Stage  string `json:"stage"`
	Output string `json:"output"`
}

// Options adjusts the default stage list.
type Options struct {
	// EscapeHTML escapes '<' and '>' in the raw text before any markup is
	// inserted, so model output cannot smuggle tags into the fragment.
	EscapeHTML bool
}

// Pipeline runs its stages in order.
type Pipeline struct {
	stages []Stage
}

// Stage names in execution order.
const (
	StageEscapeHTML     = "escape-html"
	StageSectionHeaders = "section-headers"
	StageBoxedAnswers   = "boxed-answers"
	StageAlignBlocks    = "align-blocks"
	StageEqnarrayBlocks = "eqnarray-blocks"
	StageDisplayMath    = "display-math"
	StageInlineMath     = "inline-math"
	StageStepMarkers    = "step-markers"
	StageBold           = "bold"
	StageLineBreaks     = "line-breaks"
	StageParagraphWrap  = "paragraph-wrap"
	StageWhitespace     = "whitespace"
)

// NewPipeline builds the response pipeline.
func NewPipeline(opt Options) *Pipeline {
	var stages []Stage
	if opt.EscapeHTML {
		stages = append(stages, Stage{StageEscapeHTML, escapeHTML})
	}
	stages = append(stages,
		Stage{StageSectionHeaders, sectionHeaders},
		Stage{StageBoxedAnswers, boxedAnswers},
		Stage{StageAlignBlocks, alignBlocks},
		Stage{StageEqnarrayBlocks, eqnarrayBlocks},
		Stage{StageDisplayMath, displayMath},
		Stage{StageInlineMath, inlineMath},
		Stage{StageStepMarkers, stepMarkers},
		Stage{StageBold, bold},
		Stage{StageLineBreaks, lineBreaks},
		Stage{StageParagraphWrap, paragraphWrap},
		Stage{StageWhitespace, normalizeWhitespace},
	)
	return &Pipeline{stages: stages}
}

// DefaultPipeline returns the pipeline without HTML escaping.
func DefaultPipeline() *Pipeline { return NewPipeline(Options{}) }

// Stages returns a copy of the stage list.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Run applies every stage to text.
func (p *Pipeline) Run(text string) string {
	metrics.FormatRuns.Inc()
	for _, s := range p.stages {
		text = s.Apply(text)
	}
	return text
}

// Trace is Run that keeps every intermediate output.
func (p *Pipeline) Trace(text string) []StageResult {
	out := make([]StageResult, 0, len(p.stages))
	for _, s := range p.stages {
		text = s.Apply(text)
		out = append(out, StageResult{Stage: s.Name, Output: text})
	}
	return out
}

var defaultPipeline = DefaultPipeline()

// FormatResponse converts answer text into an HTML fragment. The output is
// not escaped; use NewPipeline(Options{EscapeHTML: true}) for untrusted text.
func FormatResponse(text string) string {
	return defaultPipeline.Run(text)
}
