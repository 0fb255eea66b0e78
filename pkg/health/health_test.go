package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(handler http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint_Passing(t *testing.T) {
	h := New()
	h.AddLiveness(Check{Name: "a", Func: passing})

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLiveness(Check{Name: "db", Func: failing("connection refused")})
	p := h.live[0]
	ctx := context.Background()

	p.run(ctx)
	p.run(ctx)
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code, "below threshold")

	p.run(ctx)
	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, w.Body.String())
}

func TestProbe_Recovers(t *testing.T) {
	fail := true
	p := newProbe(Check{Name: "x", FailureThreshold: 1, SuccessThreshold: 2, Func: func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}})
	ctx := context.Background()

	p.run(ctx)
	assert.False(t, p.healthy.Load())

	fail = false
	p.run(ctx)
	assert.False(t, p.healthy.Load(), "needs two successes")
	p.run(ctx)
	assert.True(t, p.healthy.Load())
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()
	h.AddReadiness(Check{Name: "postgres", Func: passing})

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)
	assert.True(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddReadiness(Check{Name: "redis", FailureThreshold: 1, Func: failing("no route")})
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	assert.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCmd struct{ err error }

func (c fakeCmd) Err() error { return c.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingCheck(fakePinger{})(ctx))
	assert.Error(t, PingCheck(fakePinger{err: errors.New("down")})(ctx))

	assert.NoError(t, CmdPingCheck(func(context.Context) fakeCmd { return fakeCmd{} })(ctx))
	assert.Error(t, CmdPingCheck(func(context.Context) fakeCmd { return fakeCmd{err: errors.New("x")} })(ctx))

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))
}
