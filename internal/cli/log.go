package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patrolgraph/pkg/pipeline"
)

// newLogger returns a logger writing to w with "15:04:05.00" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long an operation took. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs "msg (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logStages writes one debug line per pipeline stage that ran.
func logStages(l *log.Logger, s pipeline.Stats) {
	stages := []struct {
		name string
		d    time.Duration
	}{
		{pipeline.StageVisibility, s.VisibilityTime},
		{pipeline.StageGuards, s.GuardTime},
		{pipeline.StageDistances, s.DistanceTime},
		{pipeline.StageConnect, s.ConnectTime},
		{pipeline.StageWeights, s.WeightTime},
		{pipeline.StagePartition, s.PartitionTime},
	}
	for _, st := range stages {
		if st.d > 0 {
			l.Debug("stage", "name", st.name, "duration", st.d.Round(time.Microsecond))
		}
	}
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
