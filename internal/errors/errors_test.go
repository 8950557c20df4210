package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		wantStr string
	}{
		{
			name: "simple error",
			err: &Error{
				Code:    "TEST_001",
				Message: "test error",
			},
			wantStr: "[TEST_001] test error",
		},
		{
			name: "error with cause",
			err: &Error{
				Code:    "TEST_002",
				Message: "wrapped error",
				Cause:   errors.New("underlying"),
			},
			wantStr: "[TEST_002] wrapped error: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New("TEST_001", "test").
		WithDetail("job", "linux").
		WithDetail("count", 2)

	if err.Details["job"] != "linux" {
		t.Errorf("Details[job] = %v, want linux", err.Details["job"])
	}
	if err.Details["count"] != 2 {
		t.Errorf("Details[count] = %v, want 2", err.Details["count"])
	}
}

func TestError_MarshalJSON(t *testing.T) {
	err := BranchFailed("linux", errors.New("exit status 2"))

	data, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("Marshal failed: %v", jsonErr)
	}

	var result map[string]any
	if jsonErr := json.Unmarshal(data, &result); jsonErr != nil {
		t.Fatalf("Unmarshal failed: %v", jsonErr)
	}

	if result["code"] != CodeBranchFailed {
		t.Errorf("code = %v, want %s", result["code"], CodeBranchFailed)
	}
	if result["cause"] != "exit status 2" {
		t.Errorf("cause = %v, want exit status 2", result["cause"])
	}
	details, ok := result["details"].(map[string]any)
	if !ok {
		t.Fatalf("details not a map")
	}
	if details["job"] != "linux" {
		t.Errorf("details.job = %v, want linux", details["job"])
	}
}

func TestHasCode(t *testing.T) {
	err := StageMultipleParallel([]string{"targets", "flavors"})
	if !HasCode(err, CodeStageMultipleParallel) {
		t.Error("HasCode(err, STAGE_001) = false, want true")
	}
	if HasCode(err, CodeStageParallelUndefined) {
		t.Error("HasCode(err, STAGE_002) = true, want false")
	}
	if HasCode(errors.New("plain"), CodeStageMultipleParallel) {
		t.Error("HasCode(plain error) = true, want false")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !HasCode(wrapped, CodeStageMultipleParallel) {
		t.Error("HasCode should find code in wrapped error")
	}
	if got := Code(wrapped); got != CodeStageMultipleParallel {
		t.Errorf("Code(wrapped) = %s, want %s", got, CodeStageMultipleParallel)
	}
	if got := Code(errors.New("plain")); got != "" {
		t.Errorf("Code(plain) = %s, want empty", got)
	}
}

func TestFactoryFunctions(t *testing.T) {
	cause := errors.New("err")
	tests := []struct {
		name     string
		err      *Error
		wantCode string
	}{
		{"ConfigMissingField", ConfigMissingField("field"), CodeConfigMissingField},
		{"ConfigInvalidValue", ConfigInvalidValue("field", "val", "reason"), CodeConfigInvalidValue},
		{"PipelineNotFound", PipelineNotFound("p.toml"), CodePipelineNotFound},
		{"PipelineParseError", PipelineParseError("p.toml", cause), CodePipelineParseError},
		{"StageMultipleParallel", StageMultipleParallel([]string{"a", "b"}), CodeStageMultipleParallel},
		{"StageParallelUndefined", StageParallelUndefined("targets"), CodeStageParallelUndefined},
		{"BranchFailed", BranchFailed("job", cause), CodeBranchFailed},
		{"BranchPanicked", BranchPanicked("job", "boom"), CodeBranchPanicked},
		{"AggregationFailed", AggregationFailed("run-1", cause), CodeAggregationFailed},
		{"RunNotFound", RunNotFound("run-1"), CodeRunNotFound},
		{"StoreFailed", StoreFailed("save", cause), CodeStoreFailed},
		{"IOFileNotFound", IOFileNotFound("/path"), CodeIOFileNotFound},
		{"IOReadError", IOReadError("/path", cause), CodeIOReadError},
		{"IOWriteError", IOWriteError("/path", cause), CodeIOWriteError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("%s Code = %s, want %s", tt.name, tt.err.Code, tt.wantCode)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s Error() is empty", tt.name)
			}
		})
	}
}

func TestErrorsUnwrapChain(t *testing.T) {
	root := errors.New("root cause")
	wrapped := AggregationFailed("run-1", root)

	if !Is(wrapped, root) {
		t.Error("Is should find root cause")
	}
	var serr *Error
	if !As(fmt.Errorf("ctx: %w", wrapped), &serr) {
		t.Fatal("As should find *Error")
	}
	if serr.Details["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", serr.Details["run_id"])
	}
}
