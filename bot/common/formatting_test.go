package common

import (
	"testing"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int64
		expected string
	}{
		{"Zero", 0, "0"},
		{"Less than 1k", 999, "999"},
		{"Exactly 1k", 1000, "1,000"},
		{"Millions", 1234567, "1,234,567"},
		{"Negative", -4200, "-4,200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatCount(tt.minutes)
			if result != tt.expected {
				t.Errorf("FormatCount(%d) = %s; want %s", tt.minutes, result, tt.expected)
			}
		})
	}
}

func TestFormatRatTime(t *testing.T) {
	tests := []struct {
		minutes  int64
		expected string
	}{
		{0, "0m"},
		{-5, "0m"},
		{45, "45m"},
		{60, "1h"},
		{125, "2h 5m"},
		{24*60 + 2*60 + 5, "1d 2h 5m"},
		{3 * 24 * 60, "3d"},
	}

	for _, tt := range tests {
		if got := FormatRatTime(tt.minutes); got != tt.expected {
			t.Errorf("FormatRatTime(%d) = %s; want %s", tt.minutes, got, tt.expected)
		}
	}
}

func TestTruncateName(t *testing.T) {
	if got := TruncateName("rat", 15); got != "rat" {
		t.Errorf("short names must be unchanged, got %s", got)
	}
	if got := TruncateName("averyveryverylongrat", 10); got != "averyvery…" {
		t.Errorf("TruncateName = %s", got)
	}
	if got := TruncateName("ラットラットラットラット", 5); got != "ラットラ…" {
		t.Errorf("TruncateName must count runes, got %s", got)
	}
}

func TestRankMedal(t *testing.T) {
	if RankMedal(1) != "🥇" || RankMedal(2) != "🥈" || RankMedal(3) != "🥉" {
		t.Error("top three must get medals")
	}
	if RankMedal(4) != "4." {
		t.Errorf("RankMedal(4) = %s", RankMedal(4))
	}
}
