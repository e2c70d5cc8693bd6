package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	transactionIDLength   = 8
	transactionIDAttempts = 5
)

// newTransactionID generates the short human-facing booking reference: the
// first 8 hex characters of a fresh UUID, uppercased. Collisions are
// re-rolled against the repository.
func (s *Service) newTransactionID(ctx context.Context) (string, error) {
	for i := 0; i < transactionIDAttempts; i++ {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		code := strings.ToUpper(raw[:transactionIDLength])

		exists, err := s.repo.TransactionIDExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check transaction id: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction id after %d attempts", transactionIDAttempts)
}
