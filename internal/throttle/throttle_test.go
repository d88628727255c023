package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemoryCounter_IncrAndGet(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, err := c.Incr(ctx, "alice", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if n != want {
			t.Errorf("Incr = %d, want %d", n, want)
		}
	}

	n, err := c.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 3 {
		t.Errorf("Get = %d, want 3", n)
	}
}

func TestMemoryCounter_KeysIndependent(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	if _, err := c.Incr(ctx, "alice", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	n, err := c.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 0 {
		t.Errorf("Get(bob) = %d, want 0", n)
	}
}

func TestMemoryCounter_Expiry(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	if _, err := c.Incr(ctx, "alice", 10*time.Millisecond); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	n, err := c.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 0 {
		t.Errorf("Get after expiry = %d, want 0", n)
	}

	// A fresh increment starts a new window at 1.
	n, err = c.Incr(ctx, "alice", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if n != 1 {
		t.Errorf("Incr after expiry = %d, want 1", n)
	}
}

func TestMemoryCounter_Reset(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	if _, err := c.Incr(ctx, "alice", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if err := c.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	n, err := c.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 0 {
		t.Errorf("Get after Reset = %d, want 0", n)
	}
}

func TestLoginLimiter_ThrottlesAfterMaxFailures(t *testing.T) {
	limiter := NewLoginLimiter(NewMemoryCounter(), 3, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "alice") {
			t.Fatalf("Allow = false after %d failures, want true", i)
		}
		limiter.RecordFailure(ctx, "alice")
	}
	if limiter.Allow(ctx, "alice") {
		t.Error("Allow = true after reaching the failure limit, want false")
	}
	// Other users are unaffected.
	if !limiter.Allow(ctx, "bob") {
		t.Error("Allow(bob) = false, want true")
	}
}

func TestLoginLimiter_SuccessResets(t *testing.T) {
	limiter := NewLoginLimiter(NewMemoryCounter(), 3, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.RecordFailure(ctx, "alice")
	}
	if limiter.Allow(ctx, "alice") {
		t.Fatal("Allow = true while throttled, want false")
	}

	limiter.RecordSuccess(ctx, "alice")
	if !limiter.Allow(ctx, "alice") {
		t.Error("Allow = false after success reset, want true")
	}
}

func TestLoginLimiter_WindowRollsOver(t *testing.T) {
	limiter := NewLoginLimiter(NewMemoryCounter(), 2, 20*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	limiter.RecordFailure(ctx, "alice")
	limiter.RecordFailure(ctx, "alice")
	if limiter.Allow(ctx, "alice") {
		t.Fatal("Allow = true while throttled, want false")
	}

	time.Sleep(50 * time.Millisecond)
	if !limiter.Allow(ctx, "alice") {
		t.Error("Allow = false after window rolled over, want true")
	}
}

// failingCounter simulates an unreachable backend.
type failingCounter struct{}

func (failingCounter) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	return 0, errors.New("backend unreachable")
}

func (failingCounter) Get(ctx context.Context, key string) (int, error) {
	return 0, errors.New("backend unreachable")
}

func (failingCounter) Reset(ctx context.Context, key string) error {
	return errors.New("backend unreachable")
}

func TestLoginLimiter_FailsOpen(t *testing.T) {
	limiter := NewLoginLimiter(failingCounter{}, 3, time.Minute, zap.NewNop())
	ctx := context.Background()

	if !limiter.Allow(ctx, "alice") {
		t.Error("Allow = false when counter backend fails, want fail-open true")
	}
	// Recording against a failing backend must not panic.
	limiter.RecordFailure(ctx, "alice")
	limiter.RecordSuccess(ctx, "alice")
}

func TestParseAddrs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "localhost:11211", []string{"localhost:11211"}},
		{"multiple", "a:11211,b:11211", []string{"a:11211", "b:11211"}},
		{"spaces", " a:11211 , b:11211 ", []string{"a:11211", "b:11211"}},
		{"trailing comma", "a:11211,", []string{"a:11211"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseAddrs(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("parseAddrs(%q) = %v, want %v", tc.input, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("parseAddrs(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.want[i])
				}
			}
		})
	}
}
