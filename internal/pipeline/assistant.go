package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/packer"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/rewrite"
	"github.com/hyperjump/kotae/internal/schema"
	"github.com/hyperjump/kotae/internal/sqlcheck"
)

// Config tunes the assistant flow.
type Config struct {
	// K caps retrieved documents per question.
	K int
	// DedupThreshold is the Jaccard similarity at which hits collapse.
	DedupThreshold float64
	// RewriteEnabled turns LLM query expansion on before retrieval.
	RewriteEnabled bool
	// Weights overrides the retrieval fusion weights; nil uses the defaults.
	Weights *models.SearchWeights
	// Level is the validation level applied to generated SQL.
	Level models.ValidationLevel
}

// CatalogSource yields the current schema snapshot for packing and validation.
type CatalogSource interface {
	Catalog() *schema.Catalog
}

// AskResult is the structured answer to one question.
type AskResult struct {
	Mode           string                   `json:"mode"`
	Question       string                   `json:"question"`
	RetrievalQuery string                   `json:"retrieval_query,omitempty"`
	SQL            string                   `json:"sql,omitempty"`
	Explanation    string                   `json:"explanation,omitempty"`
	Hits           []*models.RetrievalHit   `json:"hits,omitempty"`
	Validation     *models.ValidationResult `json:"validation,omitempty"`
}

type handler func(ctx context.Context, question string) (*AskResult, error)

// Assistant runs the question flow: rewrite, retrieve, dedup, pack, generate,
// validate. It holds no per-request state and is safe for concurrent use.
type Assistant struct {
	rewriter  *rewrite.Rewriter
	retriever *retrieval.Retriever
	packer    *packer.Packer
	validator *sqlcheck.Validator
	generator llm.Generator
	catalogs  CatalogSource
	cfg       Config
	logger    *zap.Logger

	handlers map[AskMode]handler
}

// NewAssistant wires the pipeline. rewriter may be nil when rewriting is off.
func NewAssistant(
	rewriter *rewrite.Rewriter,
	retriever *retrieval.Retriever,
	pack *packer.Packer,
	validator *sqlcheck.Validator,
	generator llm.Generator,
	catalogs CatalogSource,
	cfg Config,
	logger *zap.Logger,
) *Assistant {
	if cfg.K <= 0 {
		cfg.K = 5
	}
	if cfg.DedupThreshold <= 0 || cfg.DedupThreshold > 1 {
		cfg.DedupThreshold = retrieval.DefaultDedupThreshold
	}
	if cfg.Level == "" {
		cfg.Level = models.ValidationStrict
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assistant{
		rewriter:  rewriter,
		retriever: retriever,
		packer:    pack,
		validator: validator,
		generator: generator,
		catalogs:  catalogs,
		cfg:       cfg,
		logger:    logger,
	}
	a.handlers = map[AskMode]handler{
		ModeGenerate: a.handleGenerate,
		ModeExplain:  a.handleExplain,
		ModeFix:      a.handleFix,
	}
	return a
}

// Ask answers a question, dispatching on its optional leading @mode token.
func (a *Assistant) Ask(ctx context.Context, question string) (*AskResult, error) {
	mode, body, err := ParseMode(question)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, fmt.Errorf("empty question")
	}
	return a.handlers[mode](ctx, body)
}

// gatherContext runs rewrite, retrieval, dedup and packing for a question.
func (a *Assistant) gatherContext(ctx context.Context, question string) (string, string, []*models.RetrievalHit, error) {
	query := question
	if a.cfg.RewriteEnabled && a.rewriter != nil {
		query = a.rewriter.Rewrite(ctx, question, nil)
	}

	hits, err := a.retriever.Retrieve(ctx, &models.RetrieveRequest{Query: query, K: a.cfg.K, Weights: a.cfg.Weights})
	if err != nil {
		return "", "", nil, fmt.Errorf("retrieve: %w", err)
	}
	hits = retrieval.Deduplicate(hits, a.cfg.DedupThreshold)

	packed := a.packer.Pack(hits, a.catalogs.Catalog())
	return query, packed, hits, nil
}

func (a *Assistant) handleGenerate(ctx context.Context, question string) (*AskResult, error) {
	query, packed, hits, err := a.gatherContext(ctx, question)
	if err != nil {
		return nil, err
	}

	out, err := a.generator.Generate(ctx, buildGeneratePrompt(packed, question))
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	sql := extractSQL(out)

	result := a.validator.Validate(sql, a.cfg.Level)
	a.logger.Info("question answered",
		zap.String("mode", ModeGenerate.String()),
		zap.Int("hits", len(hits)),
		zap.Bool("valid", result.IsValid))

	return &AskResult{
		Mode:           ModeGenerate.String(),
		Question:       question,
		RetrievalQuery: query,
		SQL:            sql,
		Hits:           hits,
		Validation:     result,
	}, nil
}

func (a *Assistant) handleExplain(ctx context.Context, question string) (*AskResult, error) {
	query, packed, hits, err := a.gatherContext(ctx, question)
	if err != nil {
		return nil, err
	}

	out, err := a.generator.Generate(ctx, buildExplainPrompt(packed, question))
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}

	return &AskResult{
		Mode:           ModeExplain.String(),
		Question:       question,
		RetrievalQuery: query,
		Explanation:    out,
		Hits:           hits,
	}, nil
}

// handleFix treats the question body as SQL: validate it and, when it fails,
// propose a corrected version in the same response. Interactive fix rounds go
// through FixSession instead.
func (a *Assistant) handleFix(ctx context.Context, body string) (*AskResult, error) {
	result := a.validator.Validate(body, a.cfg.Level)
	res := &AskResult{
		Mode:       ModeFix.String(),
		Question:   body,
		SQL:        body,
		Validation: result,
	}
	if result.IsValid {
		return res, nil
	}

	packed := a.packer.PackSchema(result.TablesFound, a.catalogs.Catalog())
	out, err := a.generator.Generate(ctx, buildFixPrompt(packed, body, result.Errors))
	if err != nil {
		return nil, fmt.Errorf("fix sql: %w", err)
	}
	fixed := extractSQL(out)
	res.SQL = fixed
	res.Validation = a.validator.Validate(fixed, a.cfg.Level)
	return res, nil
}
