package memory

import (
	"testing"

	"github.com/defistate/token-launcher-go/store"
	"github.com/defistate/token-launcher-go/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}
