package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Idempotency replays the stored response when a client retries a mutating
// request with the same Idempotency-Key.
type Idempotency struct {
	store  db.Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewIdempotency(store db.Store, logger *zap.Logger) *Idempotency {
	return &Idempotency{store: store, ttl: 24 * time.Hour, logger: logger, now: time.Now}
}

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter records status and body while passing them through.
type captureWriter struct {
	http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func (c *captureWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.wroteHeader = true
		c.ResponseWriter.WriteHeader(statusCode)
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Middleware behaviour:
//   - no header: pass through;
//   - first use of a key: run the handler and store its response;
//   - same key, same request: replay the stored response;
//   - same key, different request: 409;
//   - same key while the first request is still running: 409.
//
// Server errors are not stored so the client may retry.
func (i *Idempotency) Middleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}
		userID := utils.GetUserIDFromRequest(r)

		// Limit body size to 1 MB
		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		reqHash := computeRequestHash(r, bodyBytes, userID)
		now := i.now()
		rec := models.IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: reqHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(i.ttl),
		}

		ctx := r.Context()
		err = i.store.InsertOne(ctx, db.Idempotency, rec)
		if err == nil {
			cw := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(cw, r, ps)
			i.finish(ctx, key, cw)
			return
		}
		if !errors.Is(err, db.ErrDuplicate) {
			i.logger.Error("idempotency insert", zap.String("key", key), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}

		var existing models.IdempotencyRecord
		if err := i.store.FindOne(ctx, db.Idempotency, db.ByID(key), &existing); err != nil {
			i.logger.Error("idempotency lookup", zap.String("key", key), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "idempotency lookup error")
			return
		}
		if existing.RequestHash != reqHash {
			utils.RespondWithError(w, http.StatusConflict, "idempotency-key conflict")
			return
		}
		if !existing.Done {
			utils.RespondWithError(w, http.StatusConflict, "request with this idempotency-key is still in progress")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(existing.Status)
		w.Write(existing.Body)
	}
}

func (i *Idempotency) finish(ctx context.Context, key string, cw *captureWriter) {
	// detach from the request so a disconnecting client does not lose the record
	ctx = context.WithoutCancel(ctx)
	if cw.statusCode >= http.StatusInternalServerError {
		if _, err := i.store.DeleteOne(ctx, db.Idempotency, db.ByID(key)); err != nil {
			i.logger.Warn("idempotency release", zap.String("key", key), zap.Error(err))
		}
		return
	}
	_, err := i.store.UpdateOne(ctx, db.Idempotency, db.ByID(key), bson.M{"$set": bson.M{
		"status": cw.statusCode,
		"body":   cw.buf.Bytes(),
		"done":   true,
	}})
	if err != nil {
		i.logger.Warn("idempotency store response", zap.String("key", key), zap.Error(err))
	}
}
