package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 200*time.Millisecond {
		t.Errorf("expected InitialDelay=200ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", cfg.Multiplier)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{errors.New("SlowDown: Please reduce your request rate."), true},
		{errors.New("ServerBusy: The server is currently unable to receive requests"), true},
		{errors.New("503 Service Unavailable"), true},
		{errors.New("dial tcp: i/o timeout"), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("InternalError: We encountered an internal error"), true},
		{errors.New("NoSuchBucket: The specified bucket does not exist"), false},
		{errors.New("AccessDenied: Access Denied"), false},
		{errors.New("AuthenticationFailed: Server failed to authenticate the request"), false},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

type explicitErr struct{ retry bool }

func (e explicitErr) Error() string     { return "503 but explicit" }
func (e explicitErr) IsRetryable() bool { return e.retry }

func TestIsRetryable_ExplicitInterface(t *testing.T) {
	if IsRetryable(explicitErr{retry: false}) {
		t.Error("explicit non-retryable error should win over pattern match")
	}
	if !IsRetryable(explicitErr{retry: true}) {
		t.Error("explicit retryable error should be retried")
	}
}

func TestDoWithResultIfRetryable_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	result, err := DoWithResultIfRetryable(context.Background(), fastConfig(3), func() ([]string, error) {
		callCount++
		if callCount < 3 {
			return nil, errors.New("SlowDown")
		}
		return []string{"sales"}, nil
	})

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if len(result) != 1 || result[0] != "sales" {
		t.Errorf("unexpected result %v", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoWithResultIfRetryable_NonRetryableError(t *testing.T) {
	expectedErr := errors.New("NoSuchBucket")
	callCount := 0
	_, err := DoWithResultIfRetryable(context.Background(), fastConfig(3), func() (int, error) {
		callCount++
		return 0, expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call (no retries), got %d", callCount)
	}
}

func TestDoIfRetryable_MaxRetriesExhausted(t *testing.T) {
	expectedErr := errors.New("connection refused")
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(2), func() error {
		callCount++
		return expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_RepeatedErrorEscalates(t *testing.T) {
	cfg := fastConfig(10)
	cfg.MaxSameErrorType = 2

	callCount := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		callCount++
		return errors.New("503 Service Unavailable")
	})

	if err == nil || !strings.Contains(err.Error(), "repeated error") {
		t.Errorf("expected escalation error, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Second

	callCount := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := DoIfRetryable(ctx, cfg, func() error {
		callCount++
		return errors.New("timeout")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", callCount)
	}
}

func TestDoIfRetryable_NilConfig(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), nil, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}
