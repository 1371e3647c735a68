package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/choicecert/certmill/internal/model"
)

func TestConfirm(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tc := range cases {
		var out bytes.Buffer
		got := confirm(strings.NewReader(tc.input), &out, "Process 3 rows?")
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Contains(t, out.String(), "Process 3 rows? [y/N]:")
	}
}

func TestFormatPreview(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	formatPreview(&out, []model.RowRecord{
		{Name: "Alice", Email: "alice@example.com", Phone: "9876543210"},
		{Name: "Bob"},
	})

	s := out.String()
	assert.Contains(t, s, "NAME")
	assert.Contains(t, s, "Alice")
	assert.Contains(t, s, "alice@example.com")
	// Missing fields render as a placeholder, not empty columns.
	assert.Contains(t, s, "Bob")
	assert.Contains(t, s, "-")
}

func TestFormatSummary_EmailMode(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	formatSummary(&out, &model.BatchSummary{
		Mode:           model.ModeEmail,
		Status:         model.StatusPartial,
		Generated:      4,
		Failed:         1,
		Emailed:        3,
		DeliveryFailed: 1,
		Ledger: model.Ledger{
			{Row: model.RowRecord{Name: "Carol"}, ErrorMessage: "rate limited"},
		},
	})

	s := out.String()
	assert.Contains(t, s, "Status:")
	assert.Contains(t, s, "partial")
	assert.Contains(t, s, "Emailed:")
	assert.Contains(t, s, "Delivery failed:")
	assert.Contains(t, s, "FAILED Carol: rate limited")
	assert.NotContains(t, s, "Archive:")
}

func TestFormatSummary_ArchiveMode(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	formatSummary(&out, &model.BatchSummary{
		Mode:         model.ModeArchive,
		Status:       model.StatusSuccess,
		Generated:    2,
		ArchivePath:  "certificates-2026-08-28.zip",
		FetchSkipped: 0,
	})

	s := out.String()
	assert.Contains(t, s, "Archive:")
	assert.Contains(t, s, "certificates-2026-08-28.zip")
	assert.NotContains(t, s, "Emailed:")
	assert.NotContains(t, s, "Fetch skipped:")
}
