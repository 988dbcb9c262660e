package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
)

func runHandler(wrap func(fasthttp.RequestHandler) fasthttp.RequestHandler, ctx *fasthttp.RequestCtx) bool {
	called := false
	wrap(func(ctx *fasthttp.RequestCtx) { called = true })(ctx)
	return called
}

func TestCORSDevelopmentAllowsAnyOrigin(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("Origin", "http://localhost:19006")

	if !runHandler(CORS(nil, true), ctx) {
		t.Fatal("handler not called")
	}
	if got := string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")); got != "http://localhost:19006" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestCORSProductionAllowList(t *testing.T) {
	wrap := CORS([]string{"https://app.example.com"}, false)

	allowed := &fasthttp.RequestCtx{}
	allowed.Request.Header.SetMethod(fasthttp.MethodGet)
	allowed.Request.Header.Set("Origin", "https://app.example.com")
	runHandler(wrap, allowed)
	if got := string(allowed.Response.Header.Peek("Access-Control-Allow-Origin")); got != "https://app.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}

	denied := &fasthttp.RequestCtx{}
	denied.Request.Header.SetMethod(fasthttp.MethodGet)
	denied.Request.Header.Set("Origin", "https://evil.example.com")
	if !runHandler(wrap, denied) {
		t.Fatal("request should still reach the handler without the CORS header")
	}
	if got := string(denied.Response.Header.Peek("Access-Control-Allow-Origin")); got != "" {
		t.Fatalf("unknown origin granted: %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodOptions)
	ctx.Request.Header.Set("Origin", "http://localhost:19006")

	if runHandler(CORS(nil, true), ctx) {
		t.Fatal("preflight must short-circuit")
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNoContent {
		t.Fatalf("status = %d", got)
	}
	if got := string(ctx.Response.Header.Peek("Access-Control-Allow-Methods")); got == "" {
		t.Fatal("no allowed methods advertised")
	}
}

func TestJWTAuthNoopWithoutSecret(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	if !runHandler(JWTAuth("", nil), ctx) {
		t.Fatal("empty secret must disable auth")
	}
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	wrap := JWTAuth("secret", nil)

	missing := &fasthttp.RequestCtx{}
	missing.Request.Header.SetMethod(fasthttp.MethodGet)
	if runHandler(wrap, missing) {
		t.Fatal("missing token passed")
	}
	if got := missing.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
		t.Fatalf("status = %d", got)
	}

	bad := &fasthttp.RequestCtx{}
	bad.Request.Header.SetMethod(fasthttp.MethodGet)
	bad.Request.Header.Set("Authorization", "Bearer not-a-token")
	if runHandler(wrap, bad) {
		t.Fatal("garbage token passed")
	}
}

func TestJWTAuthAcceptsSignedToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "local",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.Header.Set("Authorization", "Bearer "+signed)
	if !runHandler(JWTAuth("secret", nil), ctx) {
		t.Fatal("valid token rejected")
	}
}

func TestClientIPUsesFirstForwardedHop(t *testing.T) {
	cases := []struct {
		forwarded string
		want      string
	}{
		{"203.0.113.9", "203.0.113.9"},
		{"203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{" 203.0.113.9 , 10.0.0.1, 172.16.0.2", "203.0.113.9"},
	}
	for _, tc := range cases {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod(fasthttp.MethodGet)
		ctx.Request.Header.Set("X-Forwarded-For", tc.forwarded)
		if got := clientIP(ctx); got != tc.want {
			t.Errorf("clientIP(%q) = %q, want %q", tc.forwarded, got, tc.want)
		}
	}
}

func TestRateLimiterFailsOpenWithoutRedis(t *testing.T) {
	limiter := NewRateLimiter(nil, "rl:test", time.Minute, 1, "", nil)
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	if !runHandler(limiter.Wrap, ctx) {
		t.Fatal("limiter without a backend must fail open")
	}
}
