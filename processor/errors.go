package processor

import (
	"fmt"

	"github.com/arloliu/segcoll/format"
)

// OpError reports the operation that failed. The underlying error, one of the errs
// sentinels wrapped with context, is available through errors.Is and errors.Unwrap.
type OpError struct {
	Kind format.CollectionKind
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
