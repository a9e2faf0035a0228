package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
)

const maxRequestBytes = 1 << 20

// callable describes one POST /{name} endpoint speaking the {"data"} / {"result"} envelope.
type callable[Req, Res any] struct {
	name string
	// canonical normalizes the decoded request before hashing. Non-nil only for callables
	// whose successful responses are replayed for a repeated Idempotency-Key.
	canonical func(Req) Req
	invoke    func(ctx context.Context, caller domain.UserID, req Req) (Res, error)
}

type requestEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type resultEnvelope struct {
	Result any `json:"result"`
}

func badRequest() error {
	return apperr.InvalidArgument("Bad Request", nil)
}

func decodeData[Req any](r *http.Request) (Req, error) {
	var req Req
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return req, badRequest()
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	var env requestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return req, badRequest()
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return req, nil
	}
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return req, badRequest()
	}
	return req, nil
}

func hashRequest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func serveCallable[Req, Res any](s *Server, c callable[Req, Res]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller := callerFromContext(ctx)

		req, err := decodeData[Req](r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		// Replay: same key, caller, callable and canonical body hash.
		var fp *idempotency.Fingerprint
		if key := r.Header.Get("Idempotency-Key"); key != "" && caller != "" && c.canonical != nil && s.Idem != nil {
			bodyHash, err := hashRequest(c.canonical(req))
			if err != nil {
				writeError(w, r, err)
				return
			}
			fp = &idempotency.Fingerprint{
				Key:      idempotency.Key(key),
				Subject:  caller,
				Callable: c.name,
				BodyHash: bodyHash,
			}
			rec, ok, err := s.Idem.Get(ctx, *fp)
			if err != nil {
				writeError(w, r, apperr.Internal(ctx, c.name+".idempotency", err))
				return
			}
			if ok && rec.StatusCode == http.StatusOK && s.replayable(rec) {
				w.Header().Set("Content-Type", rec.ContentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(rec.StatusCode)
				_, _ = w.Write(rec.Body)
				return
			}
		}

		res, err := c.invoke(ctx, caller, req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		body, err := json.Marshal(resultEnvelope{Result: res})
		if err != nil {
			writeError(w, r, err)
			return
		}
		if fp != nil {
			// The mutation already happened; a failed put only loses the replay.
			if err := s.Idem.Put(ctx, *fp, idempotency.Record{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        body,
				CreatedAt:   s.now(),
			}); err != nil {
				slog.WarnContext(ctx, "idempotency record not stored", "callable", c.name, "error", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now().UTC()
}

func (s *Server) replayable(rec idempotency.Record) bool {
	return s.ReplayWindow <= 0 || !rec.CreatedAt.Before(s.now().Add(-s.ReplayWindow))
}
