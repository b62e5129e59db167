package reports

import "context"

// Variant is one version of a query inside a fallback cascade. Variants are
// ordered strictly from most to least filtered.
type Variant[T any] func(ctx context.Context) ([]T, error)

// RunCascade executes variants in order and returns the first non-empty
// result. A later variant is only attempted after the previous one returned
// zero rows; query errors propagate immediately and never trigger a
// fallback. Exhausting the cascade with zero rows is a valid empty result,
// not a failure.
func RunCascade[T any](ctx context.Context, variants ...Variant[T]) ([]T, error) {
	var last []T
	for _, variant := range variants {
		rows, err := variant(ctx)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows, nil
		}
		last = rows
	}
	return last, nil
}
