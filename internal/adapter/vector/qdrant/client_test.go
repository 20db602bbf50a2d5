package qdrant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/mentor-match/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

func TestIndex_EnsureCollection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "collection already exists",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(http.StatusOK)
					require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": "ok"}))
				}
			},
		},
		{
			name: "create new collection",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				if r.Method == http.MethodPut {
					var payload map[string]any
					require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
					vectors := payload["vectors"].(map[string]any)
					assert.Equal(t, float64(64), vectors["size"])
					assert.Equal(t, "Cosine", vectors["distance"])
					w.WriteHeader(http.StatusOK)
				}
			},
		},
		{
			name: "create fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			idx := qdrant.New(srv.URL, "", "mentors")
			err := idx.EnsureCollection(context.Background(), 64)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIndex_SearchMapsPayloadAndOrders(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/points/search"))
		resp := map[string]any{
			"result": []map[string]any{
				{"score": 0.9, "payload": map[string]any{"mentor_id": "m2"}},
				{"score": 0.9, "payload": map[string]any{"mentor_id": "m1"}},
				{"score": 0.5, "payload": map[string]any{"mentor_id": "m3"}},
				{"score": 0.4, "payload": map[string]any{}}, // no mentor_id, dropped
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	idx := qdrant.New(srv.URL, "", "mentors")
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "m1", hits[0].MentorID)
	assert.Equal(t, "m2", hits[1].MentorID)
	assert.Equal(t, "m3", hits[2].MentorID)
}

func TestIndex_SearchServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	idx := qdrant.New(srv.URL, "", "mentors")
	_, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestIndex_UpsertSendsStablePointID(t *testing.T) {
	t.Parallel()
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/points/count") {
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": 1}}))
			return
		}
		var body struct {
			Points []struct {
				ID string `json:"id"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Points, 1)
		got = append(got, body.Points[0].ID)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx := qdrant.New(srv.URL, "", "mentors")
	require.NoError(t, idx.Upsert(context.Background(), "mentor-42", []float32{1, 0}))
	require.NoError(t, idx.Upsert(context.Background(), "mentor-42", []float32{0, 1}))
	require.Len(t, got, 2)
	assert.Equal(t, got[0], got[1])
}
