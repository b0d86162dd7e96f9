package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/portfoliobot/internal/modules/accounts"
	"github.com/aristath/portfoliobot/internal/modules/portfolio"
	testingpkg "github.com/aristath/portfoliobot/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)
	testingpkg.CreateUser(t, db, "alice")

	service := portfolio.NewService(
		portfolio.NewLotRepository(db.Conn(), zerolog.Nop()),
		accounts.NewRepository(db.Conn(), zerolog.Nop()),
		zerolog.Nop(),
	)
	router := chi.NewRouter()
	NewHandler(service, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func TestAddLotAndGetPortfolio(t *testing.T) {
	router := setupRouter(t)

	body := `{"ticker":"aapl","shares":"4","entry_price":"12.5","purchase_date":"2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/portfolio/alice/lots", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/portfolio/alice/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		Owner    string `json:"owner"`
		Holdings []struct {
			Ticker string `json:"ticker"`
			Shares string `json:"shares"`
		} `json:"holdings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "alice", summary.Owner)
	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "AAPL", summary.Holdings[0].Ticker)
	assert.Equal(t, "4", summary.Holdings[0].Shares)
}

func TestAddLot_Errors(t *testing.T) {
	router := setupRouter(t)

	testCases := []struct {
		name   string
		owner  string
		body   string
		status int
	}{
		{"malformed body", "alice", `{`, http.StatusBadRequest},
		{"bad date", "alice", `{"ticker":"A","shares":"1","entry_price":"1","purchase_date":"yesterday"}`, http.StatusBadRequest},
		{"zero shares", "alice", `{"ticker":"A","shares":"0","entry_price":"1"}`, http.StatusBadRequest},
		{"unknown owner", "ghost", `{"ticker":"A","shares":"1","entry_price":"1"}`, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/portfolio/"+tc.owner+"/lots", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
