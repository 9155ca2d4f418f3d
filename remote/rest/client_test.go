package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhive/contentcache/remote"
)

func TestGetDocument(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/subjects/ap-biology", r.URL.Path)
		w.Write([]byte(`{"title":"AP Biology"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithBearerToken("tok"))
	require.NoError(t, err)

	doc, err := c.GetDocument(context.Background(), "subjects", "ap-biology")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"AP Biology"}`, string(doc))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestGetDocumentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.GetDocument(context.Background(), "subjects", "missing")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestGetDocumentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.GetDocument(context.Background(), "subjects", "ap-biology")
	assert.ErrorIs(t, err, remote.ErrRequestFailed)
}

func TestPutDocument(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/pages/ap-biology-1-2", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	require.NoError(t, c.PutDocument(context.Background(), "pages", "ap-biology-1-2", []byte(`{"v":1}`)))
	assert.JSONEq(t, `{"v":1}`, gotBody)
}

func TestDeleteDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	assert.NoError(t, c.DeleteDocument(context.Background(), "pages", "k"))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestEmptyIdentifiers(t *testing.T) {
	c, err := NewClient("http://localhost:0")
	require.NoError(t, err)

	_, err = c.GetDocument(context.Background(), "", "id")
	assert.ErrorIs(t, err, remote.ErrRequestFailed)
}
