package ingest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/events"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
	"github.com/dd0wney/cluso-ingest/pkg/schema"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

// GraphResolver looks graphs up by id. *metagraph.Manager implements it.
type GraphResolver interface {
	Get(id string) (*storage.GraphStorage, error)
}

// MetricsRecorder receives import metrics. *metrics.Registry implements it.
type MetricsRecorder interface {
	TrackImport() (done func())
	RecordImport(format, status, errorKind string, duration time.Duration)
	RecordImportPhase(phase string, duration time.Duration)
	RecordImportedElements(graph string, vertices, edges, keys int)
	RecordStorageOperation(operation, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) TrackImport() func()                                  { return func() {} }
func (nopRecorder) RecordImport(string, string, string, time.Duration)   {}
func (nopRecorder) RecordImportPhase(string, time.Duration)              {}
func (nopRecorder) RecordImportedElements(string, int, int, int)         {}
func (nopRecorder) RecordStorageOperation(string, string, time.Duration) {}

// Config wires an Orchestrator. Graphs is required; the rest default to
// the built-in registry, atomic mode and no-op observers.
type Config struct {
	Graphs    GraphResolver
	Decoders  *codec.Registry
	Mode      Mode
	BatchSize int
	Publisher events.Publisher
	Metrics   MetricsRecorder
	Logger    logging.Logger
}

// Orchestrator is the entry point for imports. It is safe for concurrent
// use; each Import runs on the caller's goroutine.
type Orchestrator struct {
	graphs      GraphResolver
	decoders    *codec.Registry
	coordinator *Coordinator
	publisher   events.Publisher
	metrics     MetricsRecorder
	logger      logging.Logger
}

// NewOrchestrator builds an Orchestrator from cfg.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Graphs == nil {
		return nil, errors.New("ingest: graph resolver is required")
	}
	o := &Orchestrator{
		graphs:    cfg.Graphs,
		decoders:  cfg.Decoders,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
	if o.decoders == nil {
		o.decoders = codec.DefaultRegistry()
	}
	if o.publisher == nil {
		o.publisher = events.Nop{}
	}
	if o.metrics == nil {
		o.metrics = nopRecorder{}
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	o.logger = o.logger.With(logging.Component("ingest"))

	coord, err := NewCoordinator(CoordinatorConfig{
		Mode:      cfg.Mode,
		BatchSize: cfg.BatchSize,
		Logger:    o.logger,
		OnPhase: func(p Phase, d time.Duration) {
			o.metrics.RecordImportPhase(p.String(), d)
		},
		OnStorage: o.metrics.RecordStorageOperation,
	})
	if err != nil {
		return nil, err
	}
	o.coordinator = coord
	return o, nil
}

// Import runs one import and reports its outcome. It never returns a nil
// Result; errors are carried in Result.Err and mapped onto Result.Code.
// req.Body is closed before Import returns.
func (o *Orchestrator) Import(ctx context.Context, req Request) *Result {
	if req.Body != nil {
		defer req.Body.Close()
	}
	done := o.metrics.TrackImport()
	defer done()

	res := &Result{
		ImportID: uuid.NewString(),
		GraphID:  req.GraphID,
		Format:   req.Format,
		Phase:    PhaseValidating,
	}
	logger := o.logger.With(
		logging.ImportID(res.ImportID),
		logging.GraphID(req.GraphID),
		logging.Format(req.Format))
	timer := logging.StartTimer(logger, "import finished")
	start := time.Now()

	out, err := o.run(ctx, req, logger)
	if out != nil {
		res.Vertices, res.Edges, res.KeysCreated = out.Vertices, out.Edges, out.KeysCreated
		res.Phase = out.Phase
	}

	if err != nil {
		res.Status = StatusError
		res.Message = err.Error()
		res.Err = err
		if !res.Phase.Terminal() {
			res.Phase = PhaseRolledBack
		}
	} else {
		res.Status = StatusOK
	}
	res.Code = StatusCode(err)

	timer.Add(logging.Phase(res.Phase.String()), logging.Int("vertices", res.Vertices), logging.Int("edges", res.Edges))
	switch {
	case err == nil:
		timer.End()
	case res.Code < http.StatusInternalServerError:
		timer.Add(logging.Error(err))
		timer.EndWithLevel(logging.WarnLevel, "import rejected")
	default:
		timer.EndError(err)
	}

	o.metrics.RecordImport(res.Format, res.Status, errorKind(err), time.Since(start))
	if res.Vertices+res.Edges+res.KeysCreated > 0 {
		o.metrics.RecordImportedElements(req.GraphID, res.Vertices, res.Edges, res.KeysCreated)
	}
	o.publish(ctx, res, logger)
	return res
}

// run walks the request through validation and hands it to the
// coordinator. Nothing touches the graph until the format and key spec are
// known to be good.
func (o *Orchestrator) run(ctx context.Context, req Request, logger logging.Logger) (*Outcome, error) {
	validateStart := time.Now()
	if req.Body == nil {
		return nil, &ValidationError{Field: "file", Reason: "is required"}
	}
	form := validation.ImportForm{GraphID: req.GraphID, Format: req.Format, SearchKeys: req.KeySpec}
	if err := validation.ValidateImportForm(&form); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	gs, err := o.graphs.Get(req.GraphID)
	if err != nil {
		if errors.Is(err, metagraph.ErrGraphNotFound) {
			return nil, &NotFoundError{GraphID: req.GraphID}
		}
		return nil, err
	}

	decoder, err := o.decoders.Resolve(req.Format)
	if err != nil {
		return nil, err
	}
	keys, err := schema.ParseKeySpec(req.KeySpec)
	if err != nil {
		return nil, err
	}
	o.metrics.RecordImportPhase(PhaseValidating.String(), time.Since(validateStart))

	logger.Debug("import accepted", logging.Count(len(keys)), logging.String("mode", string(o.coordinator.Mode())))
	return o.coordinator.Run(ctx, gs, Plan{
		Format:  req.Format,
		Keys:    keys,
		Decoder: decoder,
		Body:    req.Body,
	})
}

func (o *Orchestrator) publish(ctx context.Context, res *Result, logger logging.Logger) {
	ev := events.Event{
		Topic:       events.TopicImportCommitted,
		ImportID:    res.ImportID,
		GraphID:     res.GraphID,
		Format:      res.Format,
		Vertices:    res.Vertices,
		Edges:       res.Edges,
		KeysCreated: res.KeysCreated,
		Time:        time.Now().UTC(),
	}
	if !res.OK() {
		ev.Topic = events.TopicImportFailed
		ev.Error = res.Message
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish import event", logging.Error(err))
	}
}
