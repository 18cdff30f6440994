package explorer

import (
	"fmt"

	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
)

// wrapServiceError 业务错误原样包一层前缀，其余错误归为数据库错误
func wrapServiceError(service string, err error) error {
	if xerr.Kind(err) != xerr.KindInternal || xerr.Is(err, xerr.ErrInvariantViolation) || xerr.Is(err, xerr.ErrStorageError) {
		return fmt.Errorf("%s: %w", service, err)
	}
	return fmt.Errorf("%s: %w: %v", service, xerr.ErrDatabaseError, err)
}
