package memory

import (
	"testing"

	"github.com/code-payments/payments-server/pkg/payments/data/payment/tests"
)

func TestPaymentMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
