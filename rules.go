package rasdesign

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("rasdesign: evaluator not configured")

// RuleContext carries inputs needed when evaluating a validation expression.
// Fields holds the form binding (field name to scalar) the expression runs
// against.
type RuleContext struct {
	Fields     any
	Now        *time.Time
	Args       map[string]any
	Metadata   map[string]any
	Stage      StageID
	StageLabel string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) stageName() string {
	if ctx.Stage != "" {
		return string(ctx.Stage)
	}
	return "unknown"
}

func (ctx RuleContext) stageBinding() map[string]any {
	if ctx.Stage == "" {
		return nil
	}
	binding := map[string]any{"id": string(ctx.Stage)}
	if ctx.StageLabel != "" {
		binding["label"] = ctx.StageLabel
	}
	return binding
}

// Evaluator executes validation expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// evaluateRule runs one expression for a stage form, timing and logging the
// attempt the same way regardless of which engine backs the evaluator.
func (s *Session) evaluateRule(desc StageDescriptor, form *FormState, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx := RuleContext{
		Fields:     form.binding(),
		Stage:      desc.ID,
		StageLabel: desc.Label,
	}.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError("", expr, ctx.stageName(), evalErr)
	s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Stage:    ctx.stageName(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (s *Session) resolveEvaluator() (Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := s.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := s.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func (s *Session) evaluatorLogger() EvaluatorLogger {
	if s.cfg.ruleLogger != nil {
		return s.cfg.ruleLogger
	}
	return noopEvaluatorLogger{}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*rasdesign.exprEvaluator":
		return "expr"
	case "*rasdesign.celEvaluator":
		return "cel"
	case "*rasdesign.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}

// isTruthy converts a rule result into a pass/fail decision. Only an explicit
// boolean false, nil, or an empty string counts as failure; numbers fail when
// exactly zero.
func isTruthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case uint64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return true
	}
}
