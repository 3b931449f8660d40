package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// corsOrigins はCORSテストで許可するオリジンの一覧。
var corsOrigins = []string{"http://localhost:3000", "https://music-central.example"}

// setupCORSRouter はCORSミドルウェアとアルバム一覧ルートを持つテスト用ルーターを生成する。
func setupCORSRouter(origins []string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(origins))
	router.GET("/api/v1/albums", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"albums": []string{}})
	})
	return router
}

// doCORSRequest は指定オリジンからのリクエストを実行する。
// originが空文字列の場合はOriginヘッダーを付けない。
func doCORSRequest(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/albums", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestCORS はCORSミドルウェアのヘッダー付与を検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("許可されたオリジンにCORSヘッダーが付与されること", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(corsOrigins)
		for _, origin := range corsOrigins {
			w := doCORSRequest(router, http.MethodGet, origin)

			if w.Code != http.StatusOK {
				t.Errorf("%s: ステータスコード = %d, want %d", origin, w.Code, http.StatusOK)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Errorf("%s: Access-Control-Allow-Origin = %q, want %q", origin, got, origin)
			}
			if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, DELETE, OPTIONS" {
				t.Errorf("%s: Access-Control-Allow-Methods = %q", origin, got)
			}
			if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, Content-Type, Cache-Control" {
				t.Errorf("%s: Access-Control-Allow-Headers = %q", origin, got)
			}
			if got := w.Header().Get("Access-Control-Max-Age"); got != "86400" {
				t.Errorf("%s: Access-Control-Max-Age = %q, want %q", origin, got, "86400")
			}
		}
	})

	t.Run("許可されていないオリジンにCORSヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(corsOrigins)
		w := doCORSRequest(router, http.MethodGet, "https://evil.example")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty string", got)
		}
	})

	t.Run("Originヘッダーの無い同一オリジンリクエストが通常どおり処理されること", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(corsOrigins)
		w := doCORSRequest(router, http.MethodGet, "")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty string", got)
		}
	})

	t.Run("許可の有無によらずVaryヘッダーが付与されること", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(corsOrigins)
		for _, origin := range []string{corsOrigins[0], "https://evil.example", ""} {
			w := doCORSRequest(router, http.MethodGet, origin)
			if got := w.Header().Get("Vary"); got != "Origin" {
				t.Errorf("origin=%q: Vary = %q, want %q", origin, got, "Origin")
			}
		}
	})

	t.Run("空の許可リストで全てのオリジンが拒否されること", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(nil)
		w := doCORSRequest(router, http.MethodGet, corsOrigins[0])

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty string", got)
		}
	})
}

// TestCORSPreflight はOPTIONSプリフライトリクエストの処理を検証する。
func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	t.Run("OPTIONSで204が返りハンドラーに到達しないこと", func(t *testing.T) {
		t.Parallel()

		handlerCalled := false
		router := gin.New()
		router.Use(CORS(corsOrigins))
		router.OPTIONS("/api/v1/albums", func(c *gin.Context) {
			handlerCalled = true
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		w := doCORSRequest(router, http.MethodOptions, corsOrigins[0])

		if w.Code != http.StatusNoContent {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != corsOrigins[0] {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, corsOrigins[0])
		}
		if handlerCalled {
			t.Error("プリフライトリクエストでハンドラーが呼ばれるべきではない")
		}
	})

	t.Run("許可されていないオリジンのOPTIONSでもCORSヘッダー無しで204が返ること", func(t *testing.T) {
		t.Parallel()

		router := setupCORSRouter(corsOrigins)
		w := doCORSRequest(router, http.MethodOptions, "https://evil.example")

		if w.Code != http.StatusNoContent {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty string", got)
		}
	})
}
