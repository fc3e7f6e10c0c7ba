package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"camproxy/internal/access"
	"camproxy/internal/cache"
	"camproxy/internal/camera"
	"camproxy/internal/config"
	"camproxy/internal/gateway"
	"camproxy/internal/imaging"
	"camproxy/internal/metrics"
	"camproxy/internal/storage"
)

// testPresets はテスト用の画質プリセット
var testPresets = map[string]imaging.Preset{
	"low":    {MaxWidth: 320, MaxHeight: 240, Quality: 50},
	"medium": {MaxWidth: 1280, MaxHeight: 720, Quality: 80},
}

// allowedIP はテストプロファイルが許可するクライアントIP
const allowedIP = "192.0.2.10"

// encodeTestJPEG はテスト用のJPEGバイト列を生成する
func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)), nil); err != nil {
		t.Fatalf("テスト画像のエンコードに失敗: %v", err)
	}
	return buf.Bytes()
}

// newTestServer はhttptestの上流カメラを持つServerを構築する
func newTestServer(t *testing.T) (*Server, *storage.SnapshotStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	payload := encodeTestJPEG(t, 100, 50)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(upstream.Close)

	host := strings.TrimPrefix(upstream.URL, "http://")
	registry := camera.NewRegistry(
		[]camera.Descriptor{
			{ID: "front-door", Name: "Front Door", Type: camera.VendorHikvision, Host: host},
			{ID: "back-yard", Name: "Back Yard", Type: camera.VendorHikvision, Host: host},
		},
		camera.VendorGlobals{Hikvision: &camera.Credentials{Username: "u", Password: "p"}},
		zerolog.Nop(),
	)

	snapCache := cache.New(2*time.Second, time.Hour)
	t.Cleanup(snapCache.Stop)

	store, err := storage.NewSnapshotStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("ストアの作成に失敗: %v", err)
	}

	profiles := []*access.Profile{
		{Link: "board-link", Name: "board", AllowAll: true,
			AllowFromIPs: []string{"192.0.2.0/24"}, Quality: "medium", RefreshInterval: 10},
		{Link: "limited-link", Name: "limited", AllowedCameras: []string{"front-door"},
			AllowFromIPs: []string{allowedIP}, Quality: "low", RefreshInterval: 5},
		{Link: "locked-link", Name: "locked", AllowAll: true,
			AllowFromIPs: []string{"10.0.0.1"}},
	}

	gw := gateway.New(
		registry,
		snapCache,
		imaging.NewTransformer(testPresets),
		store,
		access.NewService(profiles, zerolog.Nop()),
		metrics.New(prometheus.NewRegistry()),
		zerolog.Nop(),
	)

	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, Env: "test"}}

	s, err := New(cfg, gw, prometheus.NewRegistry(), zerolog.Nop())
	if err != nil {
		t.Fatalf("サーバーの構築に失敗: %v", err)
	}
	return s, store
}

// doRequest は許可されたIPからのリクエストを実行する
func doRequest(s *Server, path string) *httptest.ResponseRecorder {
	return doRequestFrom(s, path, allowedIP)
}

func doRequestFrom(s *Server, path, clientIP string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = clientIP + ":41000"
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// TestHealthEndpoint はヘルスチェックが認証なしで応答することをテストする
func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequestFrom(s, "/health", "203.0.113.9")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスが不正: %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("statusが不正: %v", body["status"])
	}
	if body["cameras"] != float64(2) {
		t.Errorf("カメラ数が不正: %v", body["cameras"])
	}
}

// TestLinkAuth はリンクトークンとIP許可リストの適用をテストする
func TestLinkAuth(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		clientIP string
		want     int
	}{
		{name: "有効なリンクと許可IP", path: "/board-link/api/cameras", clientIP: allowedIP, want: http.StatusOK},
		{name: "未知のリンク", path: "/no-such-link/api/cameras", clientIP: allowedIP, want: http.StatusForbidden},
		{name: "許可外のIP", path: "/board-link/api/cameras", clientIP: "198.51.100.7", want: http.StatusForbidden},
		{name: "IP許可リスト不一致", path: "/locked-link/api/cameras", clientIP: allowedIP, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequestFrom(s, tt.path, tt.clientIP)
			if w.Code != tt.want {
				t.Errorf("ステータスが不一致: got %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && !strings.Contains(w.Body.String(), "forbidden") {
				t.Errorf("403レスポンスの形式が不正: %s", w.Body.String())
			}
		})
	}
}

// TestSnapshotEndpoint はスナップショット配信とキャッシュヘッダーをテストする
func TestSnapshotEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	first := doRequest(s, "/board-link/camera/front-door/high")
	if first.Code != http.StatusOK {
		t.Fatalf("ステータスが不正: %d body=%s", first.Code, first.Body.String())
	}
	if ct := first.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Typeが不正: %s", ct)
	}
	if first.Header().Get("X-Cache") != "MISS" {
		t.Errorf("初回のX-Cacheが不正: %s", first.Header().Get("X-Cache"))
	}
	if first.Header().Get("X-Camera-Id") != "front-door" {
		t.Errorf("X-Camera-Idが不正: %s", first.Header().Get("X-Camera-Id"))
	}

	// 直後の同一リクエストはキャッシュヒット
	second := doRequest(s, "/board-link/camera/front-door/high")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("2回目のX-Cacheが不正: %s", second.Header().Get("X-Cache"))
	}

	// 変換付きリクエストはキャッシュを経由しない
	transformed := doRequest(s, "/board-link/camera/front-door/high?rotate=2.5")
	if transformed.Code != http.StatusOK {
		t.Fatalf("変換付きリクエストに失敗: %d", transformed.Code)
	}
	if transformed.Header().Get("X-Cache") != "MISS" {
		t.Errorf("変換付きのX-Cacheが不正: %s", transformed.Header().Get("X-Cache"))
	}
}

// TestSnapshotValidation は不正なパラメータの拒否をテストする
func TestSnapshotValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "不正な画質", path: "/board-link/camera/front-door/ultra", want: http.StatusBadRequest},
		{name: "不正なcrop", path: "/board-link/camera/front-door/high?crop=1,2,3", want: http.StatusBadRequest},
		{name: "範囲外のrotate", path: "/board-link/camera/front-door/high?rotate=90", want: http.StatusBadRequest},
		{name: "フレーム外のcrop", path: "/board-link/camera/front-door/high?crop=0,0,5000,5000", want: http.StatusBadRequest},
		{name: "未知のカメラ", path: "/board-link/camera/no-such-camera/high", want: http.StatusNotFound},
		{name: "認可されないカメラ", path: "/limited-link/camera/back-yard/low", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, tt.path)
			if w.Code != tt.want {
				t.Errorf("ステータスが不一致: got %d, want %d body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

// TestCamerasEndpoint はプロファイルに応じたカメラ一覧をテストする
func TestCamerasEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var body struct {
		Cameras []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"cameras"`
		DefaultQuality  string `json:"defaultQuality"`
		RefreshInterval int    `json:"refreshInterval"`
	}

	w := doRequest(s, "/limited-link/api/cameras")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスが不正: %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if len(body.Cameras) != 1 || body.Cameras[0].ID != "front-door" {
		t.Errorf("カメラ一覧が不正: %+v", body.Cameras)
	}
	if body.DefaultQuality != "low" || body.RefreshInterval != 5 {
		t.Errorf("デフォルト設定が不正: %+v", body)
	}

	w = doRequest(s, "/board-link/api/cameras")
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if len(body.Cameras) != 2 {
		t.Errorf("ワイルドカードのカメラ一覧が不正: %+v", body.Cameras)
	}
}

// TestPreviewEndpoint は永続化済みスナップショットの配信をテストする
func TestPreviewEndpoint(t *testing.T) {
	s, store := newTestServer(t)

	payload := encodeTestJPEG(t, 50, 50)
	if err := store.Save("front-door", "medium", payload); err != nil {
		t.Fatalf("プレビューの保存に失敗: %v", err)
	}

	w := doRequest(s, "/board-link/camera/front-door/medium/preview")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスが不正: %d", w.Code)
	}
	if w.Header().Get("X-Preview") != "true" {
		t.Errorf("X-Previewが不正: %s", w.Header().Get("X-Preview"))
	}
	if !bytes.Equal(w.Body.Bytes(), payload) {
		t.Error("プレビューの内容が保存データと一致しない")
	}

	// 未保存のカメラは404
	missing := doRequest(s, "/board-link/camera/back-yard/medium/preview")
	if missing.Code != http.StatusNotFound {
		t.Errorf("未保存プレビューのステータスが不正: %d", missing.Code)
	}
}

// TestIndexEndpoint はWeb UIの配信をテストする
func TestIndexEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, "/board-link")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスが不正: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Typeが不正: %s", ct)
	}
	if !strings.Contains(w.Body.String(), "cameraGrid") {
		t.Error("indexページの内容が不正")
	}
}
