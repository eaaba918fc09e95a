package orglock

import (
	"sync"
	"testing"
)

func TestLockSerializesPerKey(t *testing.T) {
	locks := New()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("org-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestLockIndependentKeys(t *testing.T) {
	locks := New()
	unlockA := locks.Lock("org-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("org-b")
		unlockB()
		close(done)
	}()
	<-done
}
