package pipeline

// Stage identifies a pipeline milestone.
type Stage string

const (
	StageLoading      Stage = "loading"
	StagePartitioning Stage = "partitioning"
	StageExporting    Stage = "exporting"
	StageComplete     Stage = "complete"
)

// Progress is one milestone notification. Step/Steps count exported
// partitions during StageExporting and are zero elsewhere.
type Progress struct {
	Stage  Stage
	Detail string
	Step   int
	Steps  int
}

// ProgressSink receives milestone notifications during a run. Publish is
// called synchronously from the pipeline goroutine; slow sinks slow the
// run.
type ProgressSink interface {
	Publish(p Progress)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Progress)

func (f SinkFunc) Publish(p Progress) { f(p) }

type nopSink struct{}

func (nopSink) Publish(Progress) {}
