package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokulkarthick/afd-sub000/internal/logsearch"
)

func TestParsePredicateBuildsSizeComparator(t *testing.T) {
	nameGlob, recipient = "*.txt", "mirror1"
	sizeOpStr, sizeValue = "gt", 1024
	hasDirID, directoryID = true, 7
	defer func() { nameGlob, recipient, sizeOpStr, hasDirID = "", "", "", false }()

	p, err := parsePredicate()
	require.NoError(t, err)
	assert.Equal(t, "*.txt", p.NameGlob)
	assert.Equal(t, "mirror1", p.Recipient)
	assert.Equal(t, logsearch.SizeGreater, p.SizeOp)
	assert.Equal(t, int64(1024), p.SizeValue)
	require.NotNil(t, p.DirectoryID)
	assert.Equal(t, uint32(7), *p.DirectoryID)
}

func TestParsePredicateRejectsUnknownSizeOp(t *testing.T) {
	sizeOpStr = "weird"
	defer func() { sizeOpStr = "" }()

	_, err := parsePredicate()
	assert.Error(t, err)
}

func TestParseWindowDefaultsToTrailing24Hours(t *testing.T) {
	win, err := parseWindow("", "")
	require.NoError(t, err)
	assert.WithinDuration(t, win.Start.Add(24*time.Hour), win.End, time.Second)
}

func TestParseWindowRejectsMalformedTimestamp(t *testing.T) {
	_, err := parseWindow("not-a-time", "")
	assert.Error(t, err)
}
