package analysis

// Stage is a coarse progress marker of a run.
type Stage string

const (
	StageFetchingSources       Stage = "fetching_sources"
	StageExtractingContent     Stage = "extracting_content"
	StageAnalyzingArchitecture Stage = "analyzing_architecture"
	StageGeneratingDiagrams    Stage = "generating_diagrams"
)

// Observer receives run progress. Calls come from the run's goroutine, in order.
type Observer interface {
	OnStage(Stage)
	OnDelta(string)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	Stage func(Stage)
	Delta func(string)
}

func (o ObserverFuncs) OnStage(s Stage) {
	if o.Stage != nil {
		o.Stage(s)
	}
}

func (o ObserverFuncs) OnDelta(d string) {
	if o.Delta != nil {
		o.Delta(d)
	}
}

type runOptions struct {
	observer Observer
}

type RunOption func(*runOptions)

// WithObserver streams stage changes and model deltas to o.
func WithObserver(o Observer) RunOption {
	return func(r *runOptions) {
		if o != nil {
			r.observer = o
		}
	}
}
