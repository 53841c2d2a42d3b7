package utils

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineLeakDetector helps detect goroutine leaks in tests
type GoroutineLeakDetector struct {
	t              *testing.T
	initialCount   int
	allowedGrowth  int
	checkInterval  time.Duration
	stabilizeDelay time.Duration
}

// NewGoroutineLeakDetector creates a new goroutine leak detector
func NewGoroutineLeakDetector(t *testing.T) *GoroutineLeakDetector {
	return &GoroutineLeakDetector{
		t:              t,
		checkInterval:  100 * time.Millisecond,
		stabilizeDelay: 200 * time.Millisecond,
	}
}

// SetAllowedGrowth sets the number of goroutines allowed to remain
func (d *GoroutineLeakDetector) SetAllowedGrowth(n int) *GoroutineLeakDetector {
	d.allowedGrowth = n
	return d
}

// Start records the initial goroutine count
func (d *GoroutineLeakDetector) Start() {
	time.Sleep(d.stabilizeDelay)
	d.initialCount = runtime.NumGoroutine()
}

// Check verifies that the goroutine count has not grown beyond the allowed
// threshold, sampling a few times to let cleanup finish
func (d *GoroutineLeakDetector) Check() {
	time.Sleep(d.stabilizeDelay)

	finalCount := runtime.NumGoroutine()
	for i := 0; i < 2; i++ {
		time.Sleep(d.checkInterval)
		if count := runtime.NumGoroutine(); count < finalCount {
			finalCount = count
		}
	}

	leaked := finalCount - d.initialCount
	if leaked > d.allowedGrowth {
		buf := make([]byte, 1<<20)
		stackLen := runtime.Stack(buf, true)
		d.t.Errorf("Goroutine leak detected: started with %d, ended with %d (allowed growth: %d)\n%s",
			d.initialCount, finalCount, d.allowedGrowth, buf[:stackLen])
	}
}
