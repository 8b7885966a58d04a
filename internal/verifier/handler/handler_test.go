package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veripass/internal/assessment"
	"veripass/internal/verifier"
	dErrors "veripass/pkg/domain-errors"
	"veripass/pkg/testutil"
)

type stubService struct {
	record   *verifier.Record
	err      error
	received string
}

func (s *stubService) Verify(_ context.Context, hash string) (*verifier.Record, error) {
	s.received = hash
	return s.record, s.err
}

func newRouter(service Service) http.Handler {
	r := chi.NewRouter()
	New(service, slog.Default()).Register(r)
	return r
}

func TestHandleVerify(t *testing.T) {
	evaluatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid certificate", func(t *testing.T) {
		stub := &stubService{record: &verifier.Record{
			Outcome:         assessment.OutcomePositive,
			FinalPercentage: 0.83,
			EvaluatedAt:     evaluatedAt,
			ValidUntil:      evaluatedAt.AddDate(0, 0, 14),
			Status:          assessment.StatusValid,
		}}
		router := newRouter(stub)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/abcdef0123456789"))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[verifier.Record](t, rr)
		assert.Equal(t, assessment.StatusValid, resp.Status)
		assert.Equal(t, 0.83, resp.FinalPercentage)
	})

	t.Run("hash is lowercased before lookup", func(t *testing.T) {
		stub := &stubService{record: &verifier.Record{Status: assessment.StatusValid}}
		router := newRouter(stub)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/ABCDEF0123456789"))

		testutil.AssertStatus(t, rr, http.StatusOK)
		require.Equal(t, "abcdef0123456789", stub.received)
	})

	t.Run("unknown hash", func(t *testing.T) {
		router := newRouter(&stubService{err: dErrors.New(dErrors.CodeNotFound, "certificate not found")})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/0000000000000000"))

		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	t.Run("malformed hash", func(t *testing.T) {
		router := newRouter(&stubService{err: dErrors.New(dErrors.CodeValidation, "verification hash is malformed")})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verify/xyz"))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}
