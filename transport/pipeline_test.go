package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/authsession/jwt"
	"github.com/MrEthical07/authsession/kv"
	"github.com/MrEthical07/authsession/refresh"
	"github.com/MrEthical07/authsession/session"
)

type harness struct {
	server      *httptest.Server
	store       *session.Store
	pipeline    *Pipeline
	api         *AuthAPI[map[string]any]
	coordinator *refresh.Coordinator
	expired     atomic.Int32
}

type harnessOptions struct {
	access    string
	refresh   string
	inspector *jwt.Inspector
	timeout   time.Duration
}

func newHarness(t *testing.T, handler http.Handler, opts harnessOptions) *harness {
	t.Helper()
	h := &harness{server: httptest.NewServer(handler)}
	t.Cleanup(h.server.Close)

	store, err := session.NewStore(kv.NewMemory(), kv.NewMemory())
	require.NoError(t, err)
	if opts.access != "" || opts.refresh != "" {
		require.NoError(t, store.SetTokens(context.Background(), opts.access, opts.refresh))
	}
	h.store = store

	h.pipeline, err = NewPipeline(Deps{
		BaseURL:   h.server.URL,
		Tokens:    store,
		Timeout:   opts.timeout,
		Inspector: opts.inspector,
	})
	require.NoError(t, err)

	h.api = NewAuthAPI[map[string]any](h.pipeline, Paths{})
	h.coordinator, err = refresh.New(refresh.Deps{
		Store:   store,
		Renewer: h.api,
		OnSessionExpired: func(context.Context, error) {
			h.expired.Add(1)
		},
	})
	require.NoError(t, err)
	h.pipeline.UseCoordinator(h.coordinator)
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeExpired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"code": CodeTokenExpired, "message": "token expired"},
	})
}

// gatedRefresh answers /auth/refresh with next once release is closed.
type gatedRefresh struct {
	calls   atomic.Int32
	release chan struct{}
	status  int
	access  string
}

func (g *gatedRefresh) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.calls.Add(1)
	<-g.release
	if g.status != http.StatusOK {
		writeJSON(w, g.status, map[string]any{"error": map[string]string{"code": "AUTH_REFRESH_INVALID"}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"accessToken": g.access}})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func TestPipelineAttachesHeaders(t *testing.T) {
	var got http.Header
	var gotBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]int{"n": 7}})
	})
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	var out struct {
		N int `json:"n"`
	}
	err := h.pipeline.DoJSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/things",
		JSON:   map[string]string{"name": "x"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.N)
	assert.Equal(t, "Bearer t1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.NotEmpty(t, got.Get(HeaderRequestID))
	assert.JSONEq(t, `{"name":"x"}`, string(gotBody))
}

func TestPipelineKeepsMultipartContentType(t *testing.T) {
	var contentType, auth, field string
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			field = r.FormValue("title")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "minutes"))
	require.NoError(t, mw.Close())

	resp, err := h.pipeline.Do(context.Background(), Request{
		Method:      http.MethodPost,
		Path:        "/upload",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, mw.FormDataContentType(), contentType)
	assert.Equal(t, "Bearer t1", auth)
	assert.Equal(t, "minutes", field)
}

func TestPipelineWithoutTokenSendsNoAuthorization(t *testing.T) {
	var auth []string
	mux := http.NewServeMux()
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Values("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
	})
	h := newHarness(t, mux, harnessOptions{})

	_, err := h.pipeline.Do(context.Background(), Request{Path: "/public"})
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestConcurrentExpiriesShareOneRenewal(t *testing.T) {
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusOK, access: "t2"}
	var mu sync.Mutex
	var retried []string

	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer t2" {
			writeExpired(w)
			return
		}
		mu.Lock()
		retried = append(retried, r.URL.Path)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"path": r.URL.Path}})
	})
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	var g errgroup.Group
	for _, p := range []string{"/data/a", "/data/b", "/data/c"} {
		g.Go(func() error {
			var out map[string]string
			if err := h.pipeline.DoJSON(context.Background(), Request{Path: p}, &out); err != nil {
				return err
			}
			if out["path"] != p {
				t.Errorf("path = %q, want %q", out["path"], p)
			}
			return nil
		})
	}

	waitFor(t, func() bool { return ref.calls.Load() == 1 && h.coordinator.Pending() == 2 })
	close(ref.release)
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, ref.calls.Load())
	assert.Len(t, retried, 3)
	assert.EqualValues(t, 1, h.coordinator.Cycles())

	access, err := h.store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", access)
	refreshTok, err := h.store.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", refreshTok, "refresh token kept when the server does not rotate it")
}

func TestRenewalFailureClearsSessionOnce(t *testing.T) {
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusUnauthorized}
	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) { writeExpired(w) })
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	errs := make(chan error, 3)
	var wg sync.WaitGroup
	for _, p := range []string{"/data/a", "/data/b", "/data/c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.pipeline.Do(context.Background(), Request{Path: p})
			errs <- err
		}()
	}

	waitFor(t, func() bool { return ref.calls.Load() == 1 && h.coordinator.Pending() == 2 })
	close(ref.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, refresh.ErrSessionExpired)
		assert.ErrorIs(t, err, refresh.ErrRenewalFailed)
	}
	assert.EqualValues(t, 1, h.expired.Load())
	assert.False(t, h.store.IsAuthenticated(context.Background()))
	refreshTok, err := h.store.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refreshTok)
}

func TestRetriedRequestIsNotRetriedAgain(t *testing.T) {
	var dataCalls atomic.Int32
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusOK, access: "t2"}
	close(ref.release)

	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		writeExpired(w)
	})
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	_, err := h.pipeline.Do(context.Background(), Request{Path: "/data"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.EqualValues(t, 2, dataCalls.Load())
	assert.EqualValues(t, 1, ref.calls.Load())
	assert.True(t, h.store.IsAuthenticated(context.Background()))
}

func TestOtherFailuresPropagateWithoutRenewal(t *testing.T) {
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusOK, access: "t2"}
	close(ref.release)

	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]string{"code": "FORBIDDEN"}})
	})
	mux.HandleFunc("/unauthorized", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "AUTH_INVALID_TOKEN"}})
	})
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	_, err := h.pipeline.Do(context.Background(), Request{Path: "/forbidden"})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)

	_, err = h.pipeline.Do(context.Background(), Request{Path: "/unauthorized"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	assert.EqualValues(t, 0, ref.calls.Load())
}

func TestAnonymousAndNoRenewRequestsSkipRenewal(t *testing.T) {
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusOK, access: "t2"}
	close(ref.release)

	var loginAuth string
	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		loginAuth = r.Header.Get("Authorization")
		writeExpired(w)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) { writeExpired(w) })
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1"})

	_, err := h.api.Login(context.Background(), "ada", "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Empty(t, loginAuth)

	err = h.api.Logout(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrTokenExpired)

	assert.EqualValues(t, 0, ref.calls.Load())
}

func TestTimeoutNeverTriggersRenewal(t *testing.T) {
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusOK, access: "t2"}
	close(ref.release)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	h := newHarness(t, mux, harnessOptions{access: "t1", refresh: "r1", timeout: 50 * time.Millisecond})

	_, err := h.pipeline.Do(context.Background(), Request{Path: "/slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsTransient(err))
	assert.EqualValues(t, 0, ref.calls.Load())
	assert.True(t, h.store.IsAuthenticated(context.Background()))
}

func TestProactiveRenewalBeforeSend(t *testing.T) {
	expiredJWT := signedToken(t, time.Now().Add(-time.Minute))
	ref := &gatedRefresh{release: make(chan struct{}), status: http.StatusOK, access: "t2"}
	close(ref.release)

	var seen []string
	mux := http.NewServeMux()
	mux.Handle("/auth/refresh", ref)
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"data": true})
	})
	h := newHarness(t, mux, harnessOptions{
		access:    expiredJWT,
		refresh:   "r1",
		inspector: jwt.NewInspector(5 * time.Second),
	})

	_, err := h.pipeline.Do(context.Background(), Request{Path: "/data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer t2"}, seen)
	assert.EqualValues(t, 1, ref.calls.Load())
}

func TestAuthAPILogin(t *testing.T) {
	var body map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"user":         map[string]any{"id": "u1", "role": "ADMIN"},
			"accessToken":  "a1",
			"refreshToken": "r1",
		}})
	})
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": map[string]any{"id": "u2"}}})
	})
	h := newHarness(t, mux, harnessOptions{})

	res, err := h.api.Login(context.Background(), "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"identifier": "ada", "password": "pw"}, body)
	assert.Equal(t, "a1", res.AccessToken)
	assert.Equal(t, "r1", res.RefreshToken)
	assert.Equal(t, "ADMIN", res.User["role"])

	_, err = h.api.Register(context.Background(), map[string]string{"identifier": "bob"})
	assert.ErrorIs(t, err, ErrMissingTokens)
}

func TestDecodeData(t *testing.T) {
	var n int
	require.NoError(t, DecodeData([]byte(`{"data":5}`), &n))
	assert.Equal(t, 5, n)

	var m map[string]string
	require.NoError(t, DecodeData([]byte(`{"name":"bare"}`), &m))
	assert.Equal(t, "bare", m["name"])

	assert.NoError(t, DecodeData([]byte(`  `), &m))
	assert.Error(t, DecodeData([]byte(`not json`), &m))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.AccessClaims{
		UID:  "u1",
		Role: "ADMIN",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(exp),
		},
	}
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}
