package store

import (
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/access"
)

// Audit logs every access made under an elevated scope.
func Audit(logger *zap.Logger, scope access.Scope, rt access.RecordType, op access.Operation) {
	if !scope.IsElevated() {
		return
	}
	logger.Info("elevated access",
		zap.String("reason", scope.Reason()),
		zap.String("record_type", string(rt)),
		zap.String("operation", string(op)),
	)
}
