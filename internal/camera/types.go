package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"camproxy/internal/errs"
)

// VendorType はカメラのベンダー種別タグ
type VendorType string

const (
	VendorUnifi     VendorType = "unifi"
	VendorReolink   VendorType = "reolink"
	VendorDahua     VendorType = "dahua"
	VendorHikvision VendorType = "hikvision"
	VendorIptronic  VendorType = "iptronic"
	VendorRTSP      VendorType = "rtsp"
)

// Descriptor はカメラ1台分の記述子。
// 設定読み込み時に一度だけ構築され、以降は不変。
type Descriptor struct {
	ID   string     `yaml:"id"`
	Name string     `yaml:"name"`
	Type VendorType `yaml:"type"`
	Host string     `yaml:"host"`

	// カメラ単位の資格情報（ベンダー全体設定より優先）
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ベンダー固有フィールド
	Channel   int    `yaml:"channel"`   // reolink / dahua / hikvision
	CameraID  string `yaml:"cameraId"`  // unifi連携APIのカメラ識別子
	URL       string `yaml:"url"`       // rtspストリームURL
	Transport string `yaml:"transport"` // rtspトランスポート（既定tcp）
	Timeout   int    `yaml:"timeout"`   // rtsp取得タイムアウト（秒）
}

// Credentials はベンダー全体のユーザー名・パスワード
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UnifiSettings はUniFi連携APIの接続設定
type UnifiSettings struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

// VendorGlobals はベンダーごとの全体設定ブロック
type VendorGlobals struct {
	Unifi     *UnifiSettings `yaml:"unifi"`
	Reolink   *Credentials   `yaml:"reolink"`
	Dahua     *Credentials   `yaml:"dahua"`
	Hikvision *Credentials   `yaml:"hikvision"`
	Iptronic  *Credentials   `yaml:"iptronic"`
	RTSP      *Credentials   `yaml:"rtsp"`
}

// Adapter はベンダーアダプタの能力集合
type Adapter interface {
	// FetchSnapshot は1枚の生画像を取得する
	FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error)

	// ValidateConfig は起動時に必須フィールドと資格情報の有無を検証する
	ValidateConfig(cam Descriptor) error
}

// resolveCredentials はカメラ単位の上書きとベンダー全体設定を解決する
func resolveCredentials(cam Descriptor, global *Credentials) (username, password string) {
	username = cam.Username
	password = cam.Password
	if global != nil {
		if username == "" {
			username = global.Username
		}
		if password == "" {
			password = global.Password
		}
	}
	return username, password
}

// requireCredentials はカメラ単位またはベンダー全体の資格情報を要求する
func requireCredentials(cam Descriptor, global *Credentials, vendor VendorType) error {
	username, password := resolveCredentials(cam, global)
	if username == "" || password == "" {
		return errs.Newf(errs.KindConfiguration,
			"camera %q: %s credentials must be set per camera or globally", cam.ID, vendor)
	}
	return nil
}

// requireHost はカメラのホスト指定を要求する
func requireHost(cam Descriptor) error {
	if cam.Host == "" {
		return errs.Newf(errs.KindConfiguration, "camera %q missing host", cam.ID)
	}
	return nil
}

// unavailable は上流の失敗をCameraUnavailableへ正規化する
func unavailable(cam Descriptor, err error) error {
	return errs.Wrap(errs.KindUnavailable, fmt.Sprintf("camera %q unavailable", cam.ID), err)
}

// fetchBody はHTTPリクエストを実行し、2xx応答のボディを返す
func fetchBody(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// HTTP取得のタイムアウト。ハングせず必ず失敗させる
const (
	probeTimeout = 5 * time.Second
	fetchTimeout = 10 * time.Second
)
