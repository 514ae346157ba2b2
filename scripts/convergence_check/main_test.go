package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	at := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	remote := []event{
		{ID: "1", Title: "Gym", Type: "routine", StartDate: at},
		{ID: "2", Title: "Meeting", Type: "todo", StartDate: at},
		{ID: "3", Title: "Beach", Type: "vacation", StartDate: at},
	}
	live := []event{
		{ID: "3", Title: "Beach", Type: "vacation", StartDate: at.In(time.FixedZone("WIB", 7*3600))},
		{ID: "1", Title: "Gym (old)", Type: "routine", StartDate: at},
		{ID: "9", Title: "Deleted", Type: "todo", StartDate: at},
	}

	r := diff(live, remote)
	assert.Equal(t, []string{"2"}, r.Missing)
	assert.Equal(t, []string{"9"}, r.Extra)
	assert.Equal(t, []string{"1"}, r.Changed)
	assert.False(t, r.converged())

	assert.True(t, diff(remote, remote).converged())
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("source") == "remote" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"code":"STORE_ERROR","message":"failed to load events"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"1","title":"Gym","type":"routine","start_date":"2024-06-01T07:00:00Z"}]}`))
	}))
	defer srv.Close()

	events, err := fetch(srv.Client(), srv.URL, "live")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Gym", events[0].Title)

	_, err = fetch(srv.Client(), srv.URL, "remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_ERROR")
}
