package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/historybot/internal/config"
	"github.com/deusflow/historybot/internal/storage"
)

func TestDryRunLeavesDayUnposted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"events":[{"year":1969,"text":"Apollo 11 lands on the Moon.","pages":[]}]}`))
	}))
	defer srv.Close()

	ledgerPath := filepath.Join(t.TempDir(), "posted_days.json")
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.FeedBaseURL = srv.URL
	cfg.FeedCacheTTL = 0
	cfg.RetryAttempts = 1
	cfg.Ledger.FilePath = ledgerPath

	dry := DryRun(cfg)
	assert.Equal(t, []string{"twitter"}, cfg.Publishers, "original config untouched")
	assert.Equal(t, "file", cfg.Ledger.Backend)

	bot, closeBot, err := Wire(context.Background(), dry, true, nil)
	require.NoError(t, err)
	defer closeBot()

	res, err := bot.Post(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, []string{"stdout"}, res.Published)
	assert.Equal(t, "On this day in 1969: Apollo 11 lands on the Moon.", res.Text)

	_, err = os.Stat(ledgerPath)
	assert.True(t, os.IsNotExist(err), "dry run must not write the ledger")

	ledger := storage.NewFileLedger(ledgerPath, 0, nil)
	require.NoError(t, ledger.Load())
	claimed, err := ledger.Claim(context.Background(), res.Day)
	require.NoError(t, err)
	assert.True(t, claimed, "real post for the day must still be possible")
}
