package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := map[string]zerolog.Level{
		"debug":      zerolog.DebugLevel,
		"  DeBuG  ":  zerolog.DebugLevel, // trimmed and case-folded
		"info":       zerolog.InfoLevel,
		"":           zerolog.InfoLevel,
		"warn":       zerolog.WarnLevel,
		"warning":    zerolog.WarnLevel, // alias
		"error":      zerolog.ErrorLevel,
		"fatal":      zerolog.FatalLevel,
		"panic":      zerolog.PanicLevel,
		"loquacious": zerolog.InfoLevel, // unknown falls back to info
	}
	for in, want := range cases {
		SetLogLevel(in)
		if got := zerolog.GlobalLevel(); got != want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", in, got, want)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		if !IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = false; want true", v)
		}
	}
	for _, v := range []string{"", "0", "false", "no", "off", "n", "  ", "enabled"} {
		if IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = true; want false", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("no args: got %q", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("all blank: got %q", got)
	}
	// The winner keeps its original spacing.
	if got := FirstNonEmpty("   ", "  Douala  ", "Yaoundé"); got != "  Douala  " {
		t.Fatalf("got %q; want %q", got, "  Douala  ")
	}
	if got := FirstNonEmpty("garoua", "maroua"); got != "garoua" {
		t.Fatalf("got %q; want %q", got, "garoua")
	}
}
