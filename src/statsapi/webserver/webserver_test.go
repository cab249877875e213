package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsapi/config"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
)

const testSecret = "test-secret"

func testRouter(t *testing.T) (*gin.Engine, *store.Store, *redis.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	router := New(config.Config{
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"http://localhost:3000"},
	}, db, rdb)
	return router, store.New(db), rdb
}

func bearer(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func get(router *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSHeaders(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origins get no CORS grant.
	req = httptest.NewRequest(http.MethodOptions, "/v1/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusRequiresToken(t *testing.T) {
	router, _, _ := testRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/v1/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/v1/status", "Bearer bogus").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/status", bearer(t)).Code)
}

func TestStatusIncludesProgressSnapshot(t *testing.T) {
	router, st, rdb := testRouter(t)
	ctx := context.Background()

	_, err := st.SaveMessage(ctx, &source.Message{
		ID: 100, ChannelID: 50, GuildID: 900,
		Created: time.Now().UTC(), Content: "m", AuthorID: 7, AuthorName: "alice",
	})
	require.NoError(t, err)
	require.NoError(t, data.SetBackfillProgress(ctx, rdb, []byte(`{"run_id":"run-1","messages":42}`)))

	w := get(router, "/v1/status", bearer(t))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Totals   struct{ Messages int64 }
		Backfill struct {
			RunID    string `json:"run_id"`
			Messages int64  `json:"messages"`
		}
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Totals.Messages)
	assert.Equal(t, "run-1", resp.Backfill.RunID)
}

func TestChannelsWindow(t *testing.T) {
	router, st, _ := testRouter(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertChannel(ctx, &types.Channel{ID: 50, GuildID: 900, Name: "general"}))
	_, err := st.SaveMessage(ctx, &source.Message{
		ID: 100, ChannelID: 50, GuildID: 900,
		Created: time.Now().UTC().Add(-time.Hour), Content: "m", AuthorID: 7, AuthorName: "alice",
	})
	require.NoError(t, err)
	_, err = st.SaveMessage(ctx, &source.Message{
		ID: 101, ChannelID: 50, GuildID: 900,
		Created: time.Now().UTC().Add(-80 * time.Hour), Content: "m", AuthorID: 7, AuthorName: "alice",
	})
	require.NoError(t, err)

	w := get(router, "/v1/stats/channels?hours=48", bearer(t))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Channels []struct {
			ChannelID string `json:"channelId"`
			Name      string `json:"name"`
			Count     int64  `json:"count"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Channels, 1)
	assert.Equal(t, "50", resp.Channels[0].ChannelID)
	assert.Equal(t, "general", resp.Channels[0].Name)
	assert.Equal(t, int64(1), resp.Channels[0].Count)

	assert.Equal(t, http.StatusBadRequest, get(router, "/v1/stats/channels?hours=0", bearer(t)).Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/v1/stats/channels?hours=abc", bearer(t)).Code)
}
