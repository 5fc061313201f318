//go:build !js_eval

package rasdesign

// NewJSEvaluator returns nil without the js_eval build tag; sessions that
// receive a nil evaluator fall back to the expr default.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
