package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFeed(t *testing.T, dir, name, body string, gz bool) string {
	t.Helper()

	data := []byte(body)
	if gz {
		var buf bytes.Buffer
		w := pgzip.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		data = buf.Bytes()
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseFeeds(t *testing.T) {
	dir := t.TempDir()
	a := writeFeed(t, dir, "a.csv", "SKU,Price\nLAP-001,1199.00\nMOU-002,19.99\n", false)
	b := writeFeed(t, dir, "b.csv.gz", "sku,price,title\nKEY-003,79.50,Keyboard\n", true)

	updates, err := parseFeeds(context.Background(), zap.NewNop(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, updates, 3)

	assert.Equal(t, "LAP-001", updates[0].SKU)
	assert.Equal(t, "MOU-002", updates[1].SKU)
	assert.Equal(t, "KEY-003", updates[2].SKU)
	assert.Equal(t, "Keyboard", updates[2].Title)
	assert.Equal(t, "79.5", updates[2].Price.String())
}

func TestParseFeeds_BadFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFeed(t, dir, "good.csv", "SKU,Price\nLAP-001,10\n", false)
	bad := writeFeed(t, dir, "bad.csv", "SKU,Price\nLAP-001,abc\n", false)

	_, err := parseFeeds(context.Background(), zap.NewNop(), []string{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv")
	assert.Contains(t, err.Error(), "invalid price")
}

func TestFeedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFeed(t, dir, "b.csv", "SKU,Price\n", false)
	writeFeed(t, dir, "a.csv.gz", "SKU,Price\n", true)
	writeFeed(t, dir, "notes.txt", "ignored", false)

	files, err := feedFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv.gz"),
		filepath.Join(dir, "b.csv"),
	}, files)
}
