// Package plugins defines the Transformer interface for query-text
// middleware applied to the active query before it is dispatched.
package plugins

// Transformer rewrites the text of a pipe query. Implementations must be
// pure: the same input gives the same output, and the input is never
// mutated in place (strings make that easy). Returning an error rejects the
// query.
type Transformer interface {
	TransformQuery(query string) (string, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(query string) (string, error)

func (f TransformerFunc) TransformQuery(query string) (string, error) {
	return f(query)
}

// Chain applies transformers in order, each seeing the previous one's output.
type Chain []Transformer

// TransformQuery runs the chain. The first error stops it and the original
// query is returned unchanged alongside the error.
func (c Chain) TransformQuery(query string) (string, error) {
	out := query
	for _, t := range c {
		var err error
		out, err = t.TransformQuery(out)
		if err != nil {
			return query, err
		}
	}
	return out, nil
}
