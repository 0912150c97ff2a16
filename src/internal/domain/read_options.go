package domain

// ReadOptions controls how repository reads treat soft-deleted records.
type ReadOptions struct {
	IncludeDeleted bool
}

type ReadOption func(*ReadOptions)

// IncludeDeleted makes a read return soft-deleted records as well.
// Meant for administrative and audit reads.
func IncludeDeleted() ReadOption {
	return func(o *ReadOptions) {
		o.IncludeDeleted = true
	}
}

func ApplyReadOptions(opts ...ReadOption) ReadOptions {
	var o ReadOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
