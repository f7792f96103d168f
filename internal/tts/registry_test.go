package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/voxline/narravox/internal/wav"
)

// mockProvider is a test implementation of Provider.
type mockProvider struct {
	name       string
	configured bool
	caps       Capabilities
	synthesize func(ctx context.Context, req Request) (*SynthesisResult, error)
	calls      int
}

func (m *mockProvider) Name() string        { return m.name }
func (m *mockProvider) DisplayName() string { return m.name }
func (m *mockProvider) Configured() bool    { return m.configured }

func (m *mockProvider) Capabilities() Capabilities {
	if m.caps.MaxSegmentChars == 0 {
		return Capabilities{
			SupportsSpeedControl: true,
			MinSpeed:             0.5,
			MaxSpeed:             2.0,
			DefaultSpeed:         1.0,
			MaxSegmentChars:      4000,
		}
	}
	return m.caps
}

func (m *mockProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{{ID: "v1", Name: "Test Voice", Provider: m.name}}, nil
}

func (m *mockProvider) Synthesize(ctx context.Context, req Request) (*SynthesisResult, error) {
	m.calls++
	if m.synthesize != nil {
		return m.synthesize(ctx, req)
	}
	return &SynthesisResult{
		AudioData:  wav.CreateMinimalPiper(2205),
		SampleRate: wav.PiperSampleRate,
		DurationMS: 100,
	}, nil
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	provider := &mockProvider{name: "test"}

	err := reg.Register(provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify provider is registered
	got, err := reg.Get("test")
	if err != nil {
		t.Fatalf("failed to get provider: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected name 'test', got '%s'", got.Name())
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	provider := &mockProvider{name: "test"}

	if err := reg.Register(provider); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	err := reg.Register(provider)
	if !errors.Is(err, ErrProviderExists) {
		t.Errorf("expected ErrProviderExists, got %v", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("nonexistent")
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_Default(t *testing.T) {
	reg := NewRegistry()

	// No default initially
	_, err := reg.Default()
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound for empty registry, got %v", err)
	}

	// First provider becomes default
	first := &mockProvider{name: "first"}
	if err := reg.Register(first); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	def, err := reg.Default()
	if err != nil {
		t.Fatalf("failed to get default: %v", err)
	}
	if def.Name() != "first" {
		t.Errorf("expected default 'first', got '%s'", def.Name())
	}

	// SetDefault switches it
	second := &mockProvider{name: "second"}
	if err := reg.Register(second); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := reg.SetDefault("second"); err != nil {
		t.Fatalf("set default failed: %v", err)
	}

	def, err = reg.Default()
	if err != nil {
		t.Fatalf("failed to get default: %v", err)
	}
	if def.Name() != "second" {
		t.Errorf("expected default 'second', got '%s'", def.Name())
	}
}

func TestRegistry_SetDefaultNotFound(t *testing.T) {
	reg := NewRegistry()

	err := reg.SetDefault("missing")
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_ListPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"charlie", "alpha", "bravo"}
	for _, name := range names {
		if err := reg.Register(&mockProvider{name: name}); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
	}

	providers := reg.List()
	if len(providers) != len(names) {
		t.Fatalf("expected %d providers, got %d", len(providers), len(names))
	}
	for i, p := range providers {
		if p.Name() != names[i] {
			t.Errorf("provider %d = %s, want %s", i, p.Name(), names[i])
		}
	}
}
