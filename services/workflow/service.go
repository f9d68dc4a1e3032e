package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"chainflow/api/pkg/config"
	"chainflow/api/pkg/engine"
	"chainflow/api/pkg/engine/handlers"
	"chainflow/api/pkg/nodedefs"
)

// Service wires the workflow engine to persistence and the HTTP surface.
type Service struct {
	repo Repository
	deps handlers.Deps
	live nodedefs.Resolver
}

// NewService builds the service from a database pool and configuration.
func NewService(pool *pgxpool.Pool, cfg *config.Config) (*Service, error) {
	deps := handlers.Deps{
		ChainalysisKey: cfg.Chainalysis.APIKey,
		ChainalysisURL: cfg.Chainalysis.BaseURL,
		TRMKey:         cfg.TRM.APIKey,
		TRMURL:         cfg.TRM.BaseURL,
		OutputDir:      cfg.OutputDir,
		HTTPClient:     &http.Client{Timeout: cfg.HTTPTimeout},
		ProviderBaseURLs: map[string]string{
			"chainalysis": cfg.Chainalysis.BaseURL,
			"trm":         cfg.TRM.BaseURL,
		},
		ProviderTokens: map[string]string{
			"chainalysis": cfg.Chainalysis.APIKey,
			"trm":         cfg.TRM.APIKey,
		},
	}

	return &Service{
		repo: NewRepository(pool),
		deps: deps,
		live: loadDefinitionRegistries(cfg.OpenAPIDocs),
	}, nil
}

// NewServiceWithDeps builds a service with explicit collaborators, used by
// tests.
func NewServiceWithDeps(repo Repository, deps handlers.Deps) *Service {
	return &Service{repo: repo, deps: deps}
}

// loadDefinitionRegistries builds the live dynamic-definition resolver from
// the configured provider OpenAPI documents. A document that fails to load is
// skipped with a warning; dynamic nodes for that provider then rely on frozen
// snapshots only.
func loadDefinitionRegistries(docs map[string]string) nodedefs.Resolver {
	var chain nodedefs.Chain
	for provider, path := range docs {
		spec, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping OpenAPI document", "provider", provider, "path", path, "error", err)
			continue
		}
		registry, err := nodedefs.LoadOpenAPI(context.Background(), provider, spec)
		if err != nil {
			slog.Warn("skipping invalid OpenAPI document", "provider", provider, "path", path, "error", err)
			continue
		}
		slog.Info("loaded dynamic node definitions", "provider", provider, "types", len(registry.Types()))
		chain = append(chain, registry)
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// executorFor assembles a fresh executor whose dynamic fallback resolves the
// workflow's frozen snapshot first, then the live registries.
func (s *Service) executorFor(snapshot nodedefs.Snapshot) *engine.Executor {
	deps := s.deps
	deps.Definitions = nodedefs.Chain{snapshot, s.live}

	registry := engine.NewRegistry()
	handlers.RegisterAll(registry, deps)
	return engine.NewExecutor(registry)
}

// ExecuteWorkflow loads a workflow's graph, runs it, and persists the run
// result. The run result is returned even when the run itself failed; the
// error return is reserved for load/persist problems.
func (s *Service) ExecuteWorkflow(ctx context.Context, id uuid.UUID) (*engine.RunResult, error) {
	wf, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.repo.GetNodesByWorkflowID(ctx, id)
	if err != nil {
		return nil, err
	}
	edges, err := s.repo.GetEdgesByWorkflowID(ctx, id)
	if err != nil {
		return nil, err
	}

	graph, err := BuildGraph(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("build graph for workflow %s: %w", id, err)
	}

	var snapshot nodedefs.Snapshot
	if len(wf.Definitions) > 0 {
		snapshot, err = nodedefs.ParseSnapshot(wf.Definitions)
		if err != nil {
			slog.Warn("ignoring invalid definition snapshot", "workflow", id, "error", err)
			snapshot = nil
		}
	}

	ec := engine.NewExecutionContext(ctx)
	result := s.executorFor(snapshot).Execute(ec, graph)

	if err := s.persistExecution(ctx, wf.ID, result); err != nil {
		slog.Error("failed to persist execution", "workflow", id, "error", err)
	}

	return result, nil
}

func (s *Service) persistExecution(ctx context.Context, workflowID uuid.UUID, result *engine.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}

	exec := &WorkflowExecution{
		ID:            uuid.New(),
		WorkflowID:    &workflowID,
		Status:        result.Status,
		NodesExecuted: result.Summary.NodesExecuted,
		ExecutedAt:    time.Now(),
		Result:        payload,
	}
	return s.repo.CreateExecution(ctx, exec)
}

// jsonMiddleware sets the Content-Type header to application/json
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// LoadRoutes mounts the workflow endpoints on the parent router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.PathPrefix("/workflows").Subrouter()
	router.StrictSlash(false)
	router.Use(jsonMiddleware)

	router.HandleFunc("/{id}", s.HandleGetWorkflow).Methods("GET")
	router.HandleFunc("/{id}/execute", s.HandleExecuteWorkflow).Methods("POST")
	router.HandleFunc("/{id}/executions", s.HandleGetExecutions).Methods("GET")
}
