package memory

import (
	"testing"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
