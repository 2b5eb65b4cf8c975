package ws

import (
	"testing"
	"time"
)

func TestJoinRateLimiter(t *testing.T) {
	rl := NewJoinRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !rl.Allow("c1") {
			t.Fatalf("attempt %d blocked under the limit", i+1)
		}
	}
	if rl.Allow("c1") {
		t.Errorf("fourth attempt allowed over the limit")
	}
	if !rl.Allow("c2") {
		t.Errorf("other clients share c1's budget")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("c1") {
		t.Errorf("window did not slide")
	}
}

func TestJoinRateLimiterForget(t *testing.T) {
	rl := NewJoinRateLimiter(1, time.Minute)
	if !rl.Allow("c1") {
		t.Fatalf("first attempt blocked")
	}
	if rl.Allow("c1") {
		t.Fatalf("limit not enforced")
	}
	rl.Forget("c1")
	if !rl.Allow("c1") {
		t.Errorf("history survived Forget")
	}
}
