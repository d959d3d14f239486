package common

import (
	"errors"
	"testing"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lower-case scheme", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "surrounding spaces", header: "  Bearer   abc.def.ghi  ", want: "abc.def.ghi"},
		{name: "empty", header: "", wantErr: true},
		{name: "scheme only", header: "Bearer", wantErr: true},
		{name: "scheme and blank", header: "Bearer    ", wantErr: true},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "token without scheme", header: "abc.def.ghi", wantErr: true},
		{name: "two tokens", header: "Bearer abc def", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingToken) {
					t.Fatalf("expected ErrMissingToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("token mismatch: got %q want %q", got, tt.want)
			}
		})
	}
}
