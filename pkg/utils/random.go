package utils

import (
	"fmt"

	"fourad-server/pkg/dice"

	"github.com/google/uuid"
)

// GenerateID создает уникальный ID для записей, пришедших извне (сессии, герои без ID).
func GenerateID() string {
	return uuid.NewString()
}

// GenerateDeterministicID создает ID из источника броска.
// Одинаковое зерно дает одинаковые ID, что нужно реплеям (призванные монстры).
func GenerateDeterministicID(src dice.Source, prefix string) string {
	const alphabet = "0123456789abcdef"
	b := make([]byte, 8)
	for i := range b {
		b[i] = alphabet[src.NextInt(len(alphabet))]
	}
	return fmt.Sprintf("%s%s", prefix, b)
}
