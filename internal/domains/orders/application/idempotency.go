package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	ordertypes "github.com/erpmesh/erpmesh/internal/domains/orders/application/types"
)

type normalizedPlaceOrderInput struct {
	UserID string           `json:"userId"`
	Lines  []normalizedLine `json:"lines"`
}

type normalizedLine struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

// FingerprintPlaceOrder builds a deterministic hash of the placement payload
// (excluding the idempotency key). Line order does not affect the hash.
func FingerprintPlaceOrder(input ordertypes.PlaceOrderInput) (string, error) {
	normalized := normalizedPlaceOrderInput{
		UserID: input.UserID,
		Lines:  make([]normalizedLine, 0, len(input.Lines)),
	}
	for _, line := range input.Lines {
		normalized.Lines = append(normalized.Lines, normalizedLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	sort.Slice(normalized.Lines, func(i, j int) bool {
		if normalized.Lines[i].ProductID == normalized.Lines[j].ProductID {
			return normalized.Lines[i].Quantity < normalized.Lines[j].Quantity
		}
		return normalized.Lines[i].ProductID < normalized.Lines[j].ProductID
	})
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
