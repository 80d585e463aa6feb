package bus

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// Source is the event source name used by the notifier.
const Source = "nema-eval"

// FoldCompletedPayload is the payload of a fold completion event.
type FoldCompletedPayload struct {
	RunID     string            `json:"run_id"`
	JobID     string            `json:"job_id"`
	Fold      string            `json:"fold"`
	Expected  int               `json:"expected"`
	Evaluated int               `json:"evaluated"`
	Summary   evaluation.Record `json:"summary"`
}

// JobOverall is one job's overall summary within a run completion event.
type JobOverall struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Overall evaluation.Record `json:"overall"`
}

// RunCompletedPayload is the payload of a run completion event.
type RunCompletedPayload struct {
	RunID      string       `json:"run_id"`
	Experiment string       `json:"experiment"`
	Task       string       `json:"task"`
	Jobs       []JobOverall `json:"jobs"`
}

// Notifier publishes coordinator progress to a bus. Fold events are
// throttled; run completion is always published.
type Notifier struct {
	bus       Bus
	prefix    string
	limiter   *rate.Limiter
	log       *logger.Logger
	throttled atomic.Int64
}

// NewNotifier creates a notifier publishing under topic prefix.
// eventsPerSecond limits fold events; zero or less means unlimited.
func NewNotifier(b Bus, prefix string, eventsPerSecond float64, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Default()
	}

	limit := rate.Inf
	burst := 1
	if eventsPerSecond > 0 {
		limit = rate.Limit(eventsPerSecond)
		burst = int(math.Max(1, math.Ceil(eventsPerSecond)))
	}

	return &Notifier{
		bus:     b,
		prefix:  prefix,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// FoldCompleted publishes a fold completion event unless the rate limit is
// exceeded, in which case the event is dropped.
func (n *Notifier) FoldCompleted(ctx context.Context, runID, jobID string, fold *evaluation.FoldResult) {
	if !n.limiter.Allow() {
		n.throttled.Add(1)
		return
	}

	payload := FoldCompletedPayload{
		RunID:     runID,
		JobID:     jobID,
		Fold:      fold.Fold,
		Expected:  fold.Expected,
		Evaluated: fold.Evaluated,
		Summary:   fold.Summary.Clone(),
	}
	n.publish(ctx, TopicFoldCompleted, runID, payload)
}

// RunCompleted publishes the run completion event with every job's overall
// summary.
func (n *Notifier) RunCompleted(ctx context.Context, rs *evaluation.ResultSet) {
	payload := RunCompletedPayload{
		RunID:      rs.RunID(),
		Experiment: rs.Experiment(),
		Task:       rs.Task(),
	}
	for _, jobID := range rs.Jobs() {
		name, _ := rs.JobName(jobID)
		overall, _ := rs.Overall(jobID)
		payload.Jobs = append(payload.Jobs, JobOverall{ID: jobID, Name: name, Overall: overall})
	}

	if dropped := n.Throttled(); dropped > 0 {
		n.log.WithRun(rs.RunID()).Debug("Fold events throttled", "dropped", dropped)
	}
	n.publish(ctx, TopicRunCompleted, rs.RunID(), payload)
}

// Throttled returns how many fold events were dropped by the rate limit.
func (n *Notifier) Throttled() int64 {
	return n.throttled.Load()
}

func (n *Notifier) publish(ctx context.Context, topic, runID string, payload any) {
	event := NewEvent(topic, Source, runID, payload)
	if err := n.bus.Publish(ctx, Topic(n.prefix, topic), event); err != nil {
		n.log.WithRun(runID).WithError(err).Warn("Failed to publish event", "topic", topic)
	}
}
