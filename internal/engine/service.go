package engine

import (
	"context"
	"log/slog"

	"github.com/jeevan-health/triage/internal/filter"
	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/internal/validation"
	"github.com/jeevan-health/triage/pkg/schema"
)

// GraphRepository is the Graph Store contract.
type GraphRepository interface {
	GraphSource
	List(ctx context.Context) ([]schema.ProtocolGraph, error)
	Create(ctx context.Context, def schema.ProtocolGraph) (*schema.ProtocolGraph, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AssessmentRepository is the server record set. Ingest applies the
// upsert-by-id rule.
type AssessmentRepository interface {
	List(ctx context.Context) ([]schema.Assessment, error)
	Ingest(ctx context.Context, records []schema.Assessment) (schema.PushResult, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CatalogSource provides the read-only reference collections.
type CatalogSource interface {
	Conditions(ctx context.Context) ([]schema.Condition, error)
	Symptoms(ctx context.Context) ([]string, error)
}

// Deps holds the collaborators of a Service. Validator, Filter and Logger
// are created with defaults when nil; Metrics may stay nil.
type Deps struct {
	Graphs      GraphRepository
	Assessments AssessmentRepository
	Catalog     CatalogSource
	Validator   *validation.ProtocolValidator
	Filter      *filter.RecordFilter
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// Service exposes every server-side operation independent of transport.
type Service struct {
	graphs      GraphRepository
	assessments AssessmentRepository
	catalog     CatalogSource
	validator   *validation.ProtocolValidator
	filter      *filter.RecordFilter
	metrics     *metrics.Collector
	logger      *slog.Logger
	traverser   *Traverser
}

// New creates a Service.
func New(deps Deps) (*Service, error) {
	if deps.Validator == nil {
		v, err := validation.NewProtocolValidator()
		if err != nil {
			return nil, err
		}
		deps.Validator = v
	}
	if deps.Filter == nil {
		deps.Filter = filter.New()
	}
	logger := logging.Default(deps.Logger)

	return &Service{
		graphs:      deps.Graphs,
		assessments: deps.Assessments,
		catalog:     deps.Catalog,
		validator:   deps.Validator,
		filter:      deps.Filter,
		metrics:     deps.Metrics,
		logger:      logger,
		traverser:   NewTraverser(deps.Graphs, deps.Metrics, logger),
	}, nil
}

// --- Reference catalogs ---

func (s *Service) ListSymptoms(ctx context.Context) ([]string, error) {
	return s.catalog.Symptoms(ctx)
}

func (s *Service) ListConditions(ctx context.Context) ([]schema.Condition, error) {
	return s.catalog.Conditions(ctx)
}

// --- Graph Store ---

// ValidateGraph runs the definition pipeline without storing anything.
func (s *Service) ValidateGraph(def *schema.ProtocolGraph) *schema.ValidationResult {
	return s.validator.Validate(def)
}

// CreateGraph validates and stores def. Authoring gaps that traversal
// degrades around are logged as warnings and do not block creation.
func (s *Service) CreateGraph(ctx context.Context, def schema.ProtocolGraph) (*schema.ProtocolGraph, error) {
	result := s.validator.Validate(&def)
	if err := result.ToError(); err != nil {
		return nil, err
	}
	created, err := s.graphs.Create(ctx, def)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithGraphID(ctx, created.ID)
	for _, w := range result.Warnings {
		s.logger.WarnContext(ctx, "protocol authoring gap",
			slog.String("path", w.Path), slog.String("code", w.Code), slog.String("message", w.Message))
	}
	s.logger.InfoContext(ctx, "protocol created", slog.String("name", created.Name), slog.Int("nodes", len(created.Nodes)))
	return created, nil
}

func (s *Service) ListGraphs(ctx context.Context) ([]schema.ProtocolGraph, error) {
	return s.graphs.List(ctx)
}

func (s *Service) GetGraph(ctx context.Context, id string) (*schema.ProtocolGraph, error) {
	return s.graphs.Get(ctx, id)
}

func (s *Service) DeleteGraph(ctx context.Context, id string) (bool, error) {
	found, err := s.graphs.Delete(ctx, id)
	if err == nil && found {
		s.logger.InfoContext(logging.WithGraphID(ctx, id), "protocol deleted")
	}
	return found, err
}

// --- Traversal ---

func (s *Service) StartTraversal(ctx context.Context, graphID string) (*schema.StepView, error) {
	return s.traverser.Start(ctx, graphID)
}

func (s *Service) Advance(ctx context.Context, graphID string, current schema.NodeID, answer schema.Answer) (*schema.StepView, error) {
	return s.traverser.Advance(ctx, graphID, current, answer)
}

// --- Scoring ---

// Score ranks the catalog against symptoms.
func (s *Service) Score(ctx context.Context, symptoms []string) (*schema.TriageResult, error) {
	conditions, err := s.catalog.Conditions(ctx)
	if err != nil {
		return nil, err
	}
	res, err := Score(symptoms, conditions)
	if err != nil {
		s.logger.ErrorContext(ctx, "scoring failed", slog.String("error", err.Error()))
		return nil, err
	}
	s.metrics.ObserveScore(res)
	return res, nil
}

// Followups returns the clarifying questions for symptoms.
func (s *Service) Followups(ctx context.Context, symptoms []string) ([]string, error) {
	conditions, err := s.catalog.Conditions(ctx)
	if err != nil {
		return nil, err
	}
	return Followups(symptoms, conditions), nil
}

// --- Assessments ---

// ListAssessments returns every server-known record, narrowed by a jq
// filter expression when one is given.
func (s *Service) ListAssessments(ctx context.Context, expr string) ([]schema.Assessment, error) {
	records, err := s.assessments.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.filter.Apply(ctx, expr, records)
}

// SaveAssessment ingests one record under the same id rule as PushBatch:
// an id already resident is left untouched.
func (s *Service) SaveAssessment(ctx context.Context, rec schema.Assessment) (schema.PushResult, error) {
	if err := s.validator.ValidateAssessment(&rec); err != nil {
		return schema.PushResult{}, err
	}
	res, err := s.assessments.Ingest(ctx, []schema.Assessment{rec})
	if err != nil {
		return schema.PushResult{}, err
	}
	s.metrics.ObserveIngest(res)
	s.logger.InfoContext(logging.WithAssessmentID(ctx, rec.ID), "assessment saved", slog.Bool("inserted", res.Inserted == 1))
	return res, nil
}

func (s *Service) DeleteAssessment(ctx context.Context, id string) (bool, error) {
	found, err := s.assessments.Delete(ctx, id)
	if err == nil {
		s.logger.InfoContext(logging.WithAssessmentID(ctx, id), "assessment delete", slog.Bool("found", found))
	}
	return found, err
}

// PushBatch ingests a batch from a field agent.
func (s *Service) PushBatch(ctx context.Context, records []schema.Assessment) (schema.PushResult, error) {
	if err := s.validator.ValidateBatch(records); err != nil {
		return schema.PushResult{}, err
	}
	res, err := s.assessments.Ingest(ctx, records)
	if err != nil {
		return schema.PushResult{}, err
	}
	s.metrics.ObserveIngest(res)
	s.logger.InfoContext(ctx, "sync push ingested",
		slog.Int("inserted", res.Inserted), slog.Int("skipped", res.Skipped), slog.Int("total", res.Total))
	return res, nil
}
