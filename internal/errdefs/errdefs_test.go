package errdefs

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestBuildCheckError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BuildCheckError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestBuildCheckError_WithContext(t *testing.T) {
	err := New(CategoryToolchain, SeverityWarning, "tool missing").
		WithContext("tool", "cmake").
		WithContext("stage", "configure")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}

	if err.Context["tool"] != "cmake" {
		t.Errorf("Context[tool] = %v, want cmake", err.Context["tool"])
	}

	if err.Context["stage"] != "configure" {
		t.Errorf("Context[stage] = %v, want configure", err.Context["stage"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	overlayErr := New(CategoryOverlay, SeverityFatal, "overlay error")
	wrapped := fmt.Errorf("outer: %w", overlayErr)
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match overlay category", configErr, CategoryOverlay, false},
		{"overlay error matches overlay category", overlayErr, CategoryOverlay, true},
		{"wrapped classified error still matches", wrapped, CategoryOverlay, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("ManifestInvalid", func(t *testing.T) {
		err := ManifestInvalid("/repo/vcpkg.json", "name field is empty")
		if err.Category != CategoryManifest {
			t.Errorf("Category = %v, want %v", err.Category, CategoryManifest)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/repo/vcpkg.json" {
			t.Errorf("Context[path] = %v, want /repo/vcpkg.json", err.Context["path"])
		}
		if !stdErrors.Is(err, ErrManifestInvalid) {
			t.Error("ManifestInvalid should match ErrManifestInvalid sentinel")
		}
	})

	t.Run("ToolchainFileMissing unset", func(t *testing.T) {
		err := ToolchainFileMissing("VCPKG_TOOLCHAIN_FILE", "")
		if !stdErrors.Is(err, ErrToolchainFile) {
			t.Error("should match ErrToolchainFile sentinel")
		}
		if !IsFatal(err) {
			t.Error("toolchain precondition failures are fatal")
		}
	})

	t.Run("OverlayWriteFailed", func(t *testing.T) {
		cause := fmt.Errorf("permission denied")
		err := OverlayWriteFailed("/scratch/overlay/ports/foo", cause)
		if !stdErrors.Is(err, ErrOverlayWrite) {
			t.Error("should match ErrOverlayWrite sentinel")
		}
		if !stdErrors.Is(err, cause) {
			t.Error("cause should remain matchable through the chain")
		}
	})
}
