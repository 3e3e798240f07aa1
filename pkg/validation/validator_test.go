package validation

import (
	"strings"
	"testing"
)

type testConfig struct {
	Mode    string  `yaml:"mode" validate:"oneof=fast slow"`
	Trials  int     `yaml:"num_trials" validate:"min=1"`
	Level   int     `yaml:"level" validate:"min=0,max=3"`
	Prob    float64 `yaml:"probability" validate:"gte=0,lt=1"`
	Tol     float64 `yaml:"tolerance" validate:"gt=0"`
	NoYAML  int     `validate:"min=0"`
	Ignored string
}

func validTestConfig() testConfig {
	return testConfig{Mode: "fast", Trials: 1, Level: 2, Prob: 0.15, Tol: 1e-9}
}

// TestStruct tests tag validation and the reported field names
func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*testConfig)
		expectErr  bool
		errorField string
	}{
		{"valid", func(c *testConfig) {}, false, ""},
		{"bad enum", func(c *testConfig) { c.Mode = "medium" }, true, "mode"},
		{"zero trials", func(c *testConfig) { c.Trials = 0 }, true, "num_trials"},
		{"level too high", func(c *testConfig) { c.Level = 4 }, true, "level"},
		{"probability one", func(c *testConfig) { c.Prob = 1 }, true, "probability"},
		{"negative probability", func(c *testConfig) { c.Prob = -0.1 }, true, "probability"},
		{"zero tolerance", func(c *testConfig) { c.Tol = 0 }, true, "tolerance"},
		{"field without yaml tag", func(c *testConfig) { c.NoYAML = -1 }, true, "NoYAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.modify(&cfg)

			err := Struct(cfg)
			if tt.expectErr && err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if tt.expectErr && !strings.HasPrefix(err.Error(), tt.errorField+":") {
				t.Errorf("Expected error for field %s, got %v", tt.errorField, err)
			}
		})
	}
}

func TestFormatValidationError_Nil(t *testing.T) {
	if err := formatValidationError(nil); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
