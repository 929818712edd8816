package models

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "short text kept verbatim",
			text: "How do I center a div?",
			want: "How do I center a div?",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
		{
			name: "exactly at the limit",
			text: strings.Repeat("a", 50),
			want: strings.Repeat("a", 50),
		},
		{
			name: "one past the limit",
			text: strings.Repeat("a", 51),
			want: strings.Repeat("a", 50) + "...",
		},
		{
			name: "long text truncated",
			text: "Recipe ideas for dinner tonight with just chicken, rice and frozen vegetables?",
			want: "Recipe ideas for dinner tonight with just chicken,...",
		},
		{
			name: "multibyte runes counted as characters",
			text: strings.Repeat("あ", 60),
			want: strings.Repeat("あ", 50) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.text); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultTitle(t *testing.T) {
	now := time.Date(2024, 3, 7, 15, 30, 0, 0, time.UTC)
	if got := DefaultTitle(now); got != "Chat 3/7/2024" {
		t.Errorf("DefaultTitle() = %q, want %q", got, "Chat 3/7/2024")
	}
}
