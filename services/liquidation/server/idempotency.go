package server

import (
	"bytes"
	"net/http"

	"github.com/google/uuid"

	"creditcore/storage/kv"
)

// IdempotencyKeyHeader is the header clients set to make a mutating
// liquidation/repay/collateral call safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyStore is the subset of *kv.IdempotencyStore the middleware
// needs, narrowed to an interface so tests can stub it without a BoltDB
// file.
type idempotencyStore interface {
	Lookup(key string) (kv.IdempotentResponse, error)
	Record(key string, resp kv.IdempotentResponse) error
}

// withIdempotency replays a previously recorded response for a repeated
// Idempotency-Key instead of re-executing the handler, grounded on
// services/otc-gateway/middleware/idempotency.go's record-then-replay
// shape; requests without the header pass straight through.
func withIdempotency(store idempotencyStore, next http.Handler) http.Handler {
	if store == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if resp, err := store.Lookup(key); err == nil {
			for name, value := range resp.Header {
				w.Header().Set(name, value)
			}
			w.WriteHeader(resp.Status)
			_, _ = w.Write(resp.Body)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK, buf: &bytes.Buffer{}}
		next.ServeHTTP(rec, r)

		_ = store.Record(key, kv.IdempotentResponse{
			RequestID: uuid.NewString(),
			Status:    rec.status,
			Header:    rec.capturedHeader(),
			Body:      rec.buf.Bytes(),
		})
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status      int
	buf         *bytes.Buffer
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) capturedHeader() map[string]string {
	out := make(map[string]string, 1)
	if ct := r.Header().Get("Content-Type"); ct != "" {
		out["Content-Type"] = ct
	}
	return out
}
