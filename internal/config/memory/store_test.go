package memory

import (
	"testing"

	"logsift/internal/config"
	"logsift/internal/config/storetest"
)

func TestConformance(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) config.Store {
		return NewStore()
	})
}
