package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nordeim/ledgersg/internal/accounting/shared"
	"github.com/nordeim/ledgersg/internal/platform/cache"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
	}{
		{shared.ErrAccountNotFound, http.StatusNotFound, "Not Found"},
		{cache.ErrMiss, http.StatusNotFound, "Not Found"},
		{fmt.Errorf("post: %w", shared.ErrPeriodClosed), http.StatusConflict, "Period Closed"},
		{shared.ErrPeriodNotFound, http.StatusUnprocessableEntity, "Period Not Found"},
		{shared.ErrAlreadyReversed, http.StatusConflict, "Duplicate"},
		{shared.ErrImmutable, http.StatusConflict, "Immutable"},
		{shared.ErrUnbalanced, http.StatusUnprocessableEntity, "Unbalanced Entry"},
		{shared.ErrTooFewLines, http.StatusBadRequest, "Validation Failed"},
		{errors.New("socket closed"), http.StatusInternalServerError, "Internal Error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.title, body.Title)
		require.Equal(t, tc.status, body.Status)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("password=secret"))
	require.NotContains(t, rec.Body.String(), "secret")
}
