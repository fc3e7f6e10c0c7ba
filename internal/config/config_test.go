package config

import (
	"os"
	"path/filepath"
	"testing"
)

// validCamerasYAML はテスト用の妥当なcameras.yaml
const validCamerasYAML = `
cameras:
  - id: front-door
    name: Front Door
    type: dahua
    host: 192.168.1.10
  - id: back-yard
    name: Back Yard
    type: rtsp
    url: rtsp://192.168.1.20:554/stream
qualities:
  low:
    maxWidth: 640
    maxHeight: 480
    quality: 60
  medium:
    maxWidth: 1280
    maxHeight: 720
    quality: 80
dahua:
  username: admin
  password: secret
`

// validAccessYAML はテスト用の妥当なaccess.yaml
const validAccessYAML = `
users:
  - unique_link: abc123xyz
    name: family
    allowedCameras: all
    allowFromIPs:
      - 192.168.1.0/24
    quality: high
    refreshInterval: 5
  - unique_link: def456uvw
    name: neighbor
    allowedCameras:
      - front-door
    allowFromIPs:
      - 10.0.0.1
`

// writeConfigDir はテスト用の設定ディレクトリを作成する
func writeConfigDir(t *testing.T, camerasYAML, accessYAML string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cameras.yaml"), []byte(camerasYAML), 0o644); err != nil {
		t.Fatalf("cameras.yamlの書き込みに失敗: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "access.yaml"), []byte(accessYAML), 0o644); err != nil {
		t.Fatalf("access.yamlの書き込みに失敗: %v", err)
	}
	return dir
}

// TestLoad は妥当な設定の読み込みをテストする
func TestLoad(t *testing.T) {
	dir := writeConfigDir(t, validCamerasYAML, validAccessYAML)
	t.Setenv("CONFIG_PATH", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗: %v", err)
	}

	if len(cfg.Cameras.Cameras) != 2 {
		t.Errorf("カメラ数が不正: %d", len(cfg.Cameras.Cameras))
	}
	if cfg.Cameras.Dahua == nil || cfg.Cameras.Dahua.Username != "admin" {
		t.Error("dahua全体設定が読み込まれていない")
	}

	presets := cfg.Presets()
	if presets["low"].MaxWidth != 640 || presets["medium"].Quality != 80 {
		t.Errorf("画質プリセットが不正: %+v", presets)
	}

	profiles := cfg.Profiles()
	if len(profiles) != 2 {
		t.Fatalf("プロファイル数が不正: %d", len(profiles))
	}
	if !profiles[0].AllowAll {
		t.Error("ワイルドカード指定が解釈されていない")
	}
	if profiles[1].AllowAll || len(profiles[1].AllowedCameras) != 1 {
		t.Error("カメラID配列が解釈されていない")
	}

	// 省略された値にデフォルトが補完される
	if profiles[1].Quality != "medium" {
		t.Errorf("デフォルト画質が補完されていない: %s", profiles[1].Quality)
	}
	if profiles[1].RefreshInterval != 10 {
		t.Errorf("デフォルト更新間隔が補完されていない: %d", profiles[1].RefreshInterval)
	}
}

// TestLoadFailures は不正な設定で起動が中断されることをテストする
func TestLoadFailures(t *testing.T) {
	testCases := []struct {
		name    string
		cameras string
		access  string
	}{
		{
			name:    "カメラなし",
			cameras: "cameras: []\nqualities:\n  low: {maxWidth: 1, maxHeight: 1, quality: 1}\n  medium: {maxWidth: 1, maxHeight: 1, quality: 1}\n",
			access:  validAccessYAML,
		},
		{
			name: "lowプリセット欠落",
			cameras: `
cameras:
  - {id: c1, name: C1, type: rtsp, url: "rtsp://h/s"}
qualities:
  medium: {maxWidth: 1280, maxHeight: 720, quality: 80}
`,
			access: validAccessYAML,
		},
		{
			name: "プリセットのフィールド欠落",
			cameras: `
cameras:
  - {id: c1, name: C1, type: rtsp, url: "rtsp://h/s"}
qualities:
  low: {maxWidth: 640, maxHeight: 480}
  medium: {maxWidth: 1280, maxHeight: 720, quality: 80}
`,
			access: validAccessYAML,
		},
		{
			name: "カメラIDの重複",
			cameras: `
cameras:
  - {id: c1, name: C1, type: rtsp, url: "rtsp://h/s"}
  - {id: c1, name: C2, type: rtsp, url: "rtsp://h/t"}
qualities:
  low: {maxWidth: 640, maxHeight: 480, quality: 60}
  medium: {maxWidth: 1280, maxHeight: 720, quality: 80}
`,
			access: validAccessYAML,
		},
		{
			name:    "必須フィールド欠落のカメラ",
			cameras: "cameras:\n  - {id: c1}\nqualities:\n  low: {maxWidth: 1, maxHeight: 1, quality: 1}\n  medium: {maxWidth: 1, maxHeight: 1, quality: 1}\n",
			access:  validAccessYAML,
		},
		{
			name:    "ユーザーなし",
			cameras: validCamerasYAML,
			access:  "users: []\n",
		},
		{
			name:    "unique_link欠落",
			cameras: validCamerasYAML,
			access:  "users:\n  - name: x\n",
		},
		{
			name:    "不正な画質指定",
			cameras: validCamerasYAML,
			access:  "users:\n  - unique_link: abc\n    quality: ultra\n",
		},
		{
			name:    "allowedCamerasの不正な文字列",
			cameras: validCamerasYAML,
			access:  "users:\n  - unique_link: abc\n    allowedCameras: some\n",
		},
		{
			name:    "unique_linkの重複",
			cameras: validCamerasYAML,
			access:  "users:\n  - unique_link: abc\n  - unique_link: abc\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfigDir(t, tc.cameras, tc.access)
			t.Setenv("CONFIG_PATH", dir)

			if _, err := Load(); err == nil {
				t.Fatal("設定エラーが期待されていたが読み込みが成功した")
			}
		})
	}
}

// TestLoadMissingFile は設定ファイル欠落で失敗することをテストする
func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("ファイル欠落でもエラーにならなかった")
	}
}

// TestServerAddress はリッスンアドレスの組み立てをテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 8080}}
	if got := cfg.ServerAddress(); got != "127.0.0.1:8080" {
		t.Errorf("ServerAddress = %q", got)
	}
}
