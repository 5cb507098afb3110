package sql

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/modelhub/modelhub/pkg/contract"
)

// isUniqueViolation recognises duplicate keys from every supported dialect.
// gorm translates most of them when TranslateError is on; the fallbacks cover
// drivers that report only a message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	message := strings.ToLower(err.Error())

	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate entry") ||
		strings.Contains(message, "duplicate key")
}

func notFound(reason contract.Reason, message string) *contract.Error {
	return contract.NewError(contract.ErrorCodeNotFound, message).WithReason(reason)
}

func internal(message string, err error) *contract.Error {
	return contract.NewErrorWith(contract.ErrorCodeInternalError, message, err)
}
