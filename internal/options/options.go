// Package options provides a small generic functional-option helper shared
// by every package in mffpy that takes configuration at construction time:
// header.Block padding, binwriter.Writer compatibility checks,
// rawbin.Reader warning sinks.
//
// Each package defines its own option type, e.g.:
//
//	type Option = options.Option[*Block]
//
//	func WithPadding(b []byte) Option {
//	    return options.NoError(func(h *Block) { h.PaddingBytes = b })
//	}
package options

// Option configures a target of type T, possibly failing.
type Option[T any] interface {
	apply(T) error
}

// Func wraps a plain function as an Option.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New creates an Option from a function that can fail, e.g. because it
// rejects an out-of-range value.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError creates an Option from a function that cannot fail, e.g. a plain
// field assignment.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply applies opts to target in order, stopping at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
