package utils

import "testing"

type errorPayload struct {
	Message string `json:"message"`
}

func TestParseLenient_ErrorPayload(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    errorPayload
		wantErr bool
	}{
		{
			name:  "valid JSON",
			input: `{"message":"model overloaded"}`,
			want:  errorPayload{Message: "model overloaded"},
		},
		{
			name:  "valid JSON without message",
			input: `{"detail":"nope"}`,
			want:  errorPayload{},
		},
		{
			name:  "unquoted keys (should be repaired)",
			input: `{message: "bad image"}`,
			want:  errorPayload{Message: "bad image"},
		},
		{
			name:  "single quotes (should be repaired)",
			input: `{'message': 'bad image'}`,
			want:  errorPayload{Message: "bad image"},
		},
		{
			name:  "truncated object (should be repaired)",
			input: `{"message": "out of memory"`,
			want:  errorPayload{Message: "out of memory"},
		},
		{
			name:    "plain text",
			input:   `this is not json at all`,
			wantErr: true,
		},
		{
			name:    "empty body",
			input:   ``,
			wantErr: true,
		},
		{
			name:    "whitespace body",
			input:   "  \n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLenient[errorPayload](tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLenient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLenient() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestParseLenient_FailureReturnsZeroValue verifies that a failed parse never
// leaks a partially populated value.
func TestParseLenient_FailureReturnsZeroValue(t *testing.T) {
	got, err := ParseLenient[errorPayload](`<html>502 Bad Gateway</html>`)
	if err == nil {
		t.Fatalf("expected error for HTML body, got %+v", got)
	}
	if got != (errorPayload{}) {
		t.Errorf("expected zero value on failure, got %+v", got)
	}
}
