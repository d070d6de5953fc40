// Package jsonpathx adapts k8s.io/client-go/util/jsonpath, a template-style
// JSONPath evaluator, to the $-rooted expression syntax ("$.a.b",
// "$.items[0]") used throughout the query and watch surfaces.
package jsonpathx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/client-go/util/jsonpath"
)

// Evaluate parses content as JSON and evaluates each of expressions
// against it, returning a JSON array with one element per expression (or,
// for a single expression, that element's bare JSON encoding — matching
// how a single-expression jsonpath query returns a scalar rather than a
// one-element array).
func Evaluate(content []byte, expressions []string) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("jsonpath target is not valid JSON: %w", err)
	}

	results := make([]any, 0, len(expressions))

	for _, expr := range expressions {
		jp := jsonpath.New(expr)
		jp.AllowMissingKeys(false)

		if err := jp.Parse(toTemplate(expr)); err != nil {
			return nil, fmt.Errorf("parse jsonpath %q: %w", expr, err)
		}

		var buf bytes.Buffer
		if err := jp.Execute(&buf, doc); err != nil {
			return nil, fmt.Errorf("evaluate jsonpath %q: %w", expr, err)
		}

		var v any
		if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
			// Execute's text output isn't valid JSON on its own (e.g. a
			// bare string) — fall back to the raw text.
			v = buf.String()
		}

		results = append(results, v)
	}

	if len(results) == 1 {
		return json.Marshal(results[0])
	}

	return json.Marshal(results)
}

// toTemplate turns a "$.a.b"-style expression into the "{.a.b}" template
// syntax jsonpath.Parse expects.
func toTemplate(expr string) string {
	expr = strings.TrimPrefix(expr, "$")
	return "{" + expr + "}"
}
