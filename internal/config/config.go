// Package config はアプリケーション全体の設定の読み込みと検証を担います。
//
// カメラ一覧と画質プリセットはcameras.yaml、アクセスプロファイルはaccess.yamlから
// 読み込み、サーバー設定は環境変数から取得します。検証はすべて起動時に行い、
// 違反があれば起動を中断します。
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"camproxy/internal/access"
	"camproxy/internal/camera"
	"camproxy/internal/errs"
	"camproxy/internal/imaging"
)

// デフォルト値
const (
	defaultQuality         = "medium"
	defaultRefreshInterval = 10 // 秒
)

// ServerConfig は環境変数から読むサーバー・実行時設定
type ServerConfig struct {
	Host        string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"PORT" envDefault:"3000"`
	ConfigPath  string `env:"CONFIG_PATH" envDefault:"./config"`
	SnapshotDir string `env:"SNAPSHOT_STORAGE" envDefault:"/tmp/camproxy-snapshots"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`
	Env         string `env:"APP_ENV" envDefault:"production"`

	// クライアントIP導出の信頼プロキシ設定
	TrustProxy    bool     `env:"TRUST_PROXY" envDefault:"false"`
	TrustProxyIPs []string `env:"TRUST_PROXY_IPS" envSeparator:","`
}

// PresetConfig は画質プリセット1つ分の設定
type PresetConfig struct {
	MaxWidth  int `yaml:"maxWidth" validate:"required,gt=0"`
	MaxHeight int `yaml:"maxHeight" validate:"required,gt=0"`
	Quality   int `yaml:"quality" validate:"required,gt=0,lte=100"`
}

// QualitiesConfig はlow/mediumのプリセット。highは常に無変換
type QualitiesConfig struct {
	Low    *PresetConfig `yaml:"low" validate:"required"`
	Medium *PresetConfig `yaml:"medium" validate:"required"`
}

// CamerasFile はcameras.yamlの構造
type CamerasFile struct {
	Cameras   []camera.Descriptor `yaml:"cameras" validate:"required,min=1,dive"`
	Qualities QualitiesConfig     `yaml:"qualities"`

	camera.VendorGlobals `yaml:",inline"`
}

// UserConfig はaccess.yamlのプロファイル1つ分
type UserConfig struct {
	UniqueLink      string     `yaml:"unique_link" validate:"required"`
	Name            string     `yaml:"name"`
	AllowedCameras  CameraList `yaml:"allowedCameras"`
	AllowFromIPs    []string   `yaml:"allowFromIPs"`
	Quality         string     `yaml:"quality" validate:"omitempty,oneof=low medium high"`
	RefreshInterval int        `yaml:"refreshInterval" validate:"gte=0"`
}

// AccessFile はaccess.yamlの構造
type AccessFile struct {
	Users []UserConfig `yaml:"users" validate:"required,min=1,dive"`
}

// CameraList は許可カメラの指定。文字列"all"またはID配列を受け付ける
type CameraList struct {
	All bool
	IDs []string
}

// UnmarshalYAML はワイルドカードと配列の両形式を解釈する
func (c *CameraList) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		if s != access.Wildcard {
			return fmt.Errorf("allowedCameras must be %q or an array, got %q", access.Wildcard, s)
		}
		c.All = true
		return nil
	}

	var ids []string
	if err := value.Decode(&ids); err != nil {
		return fmt.Errorf("allowedCameras must be %q or an array", access.Wildcard)
	}
	c.IDs = ids
	return nil
}

// Config はアプリケーション全体の設定
type Config struct {
	Server  ServerConfig
	Cameras CamerasFile
	Access  AccessFile
}

// Load は環境変数と設定ファイルから設定を読み込んで検証する
func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, "failed to parse environment", err)
	}

	if err := loadYAML(filepath.Join(cfg.Server.ConfigPath, "cameras.yaml"), &cfg.Cameras); err != nil {
		return nil, err
	}
	if err := loadYAML(filepath.Join(cfg.Server.ConfigPath, "access.yaml"), &cfg.Access); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// loadYAML は1ファイルを読み込んでデコードする
func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, fmt.Sprintf("failed to read %s", filepath.Base(path)), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.KindConfiguration, fmt.Sprintf("failed to parse %s", filepath.Base(path)), err)
	}
	return nil
}

// Validate は設定全体の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errs.Newf(errs.KindConfiguration, "invalid port: %d", c.Server.Port)
	}

	v := validator.New()
	if err := v.Struct(&c.Cameras); err != nil {
		return errs.Wrap(errs.KindConfiguration, "cameras.yaml validation failed", err)
	}
	if err := v.Struct(&c.Access); err != nil {
		return errs.Wrap(errs.KindConfiguration, "access.yaml validation failed", err)
	}

	// カメラIDの一意性と必須フィールド
	seen := make(map[string]bool, len(c.Cameras.Cameras))
	for i, cam := range c.Cameras.Cameras {
		if cam.ID == "" || cam.Name == "" || cam.Type == "" {
			return errs.Newf(errs.KindConfiguration,
				"cameras.yaml: camera at index %d missing required fields (id, name, type)", i)
		}
		if seen[cam.ID] {
			return errs.Newf(errs.KindConfiguration, "cameras.yaml: duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = true
	}

	// リンクトークンの一意性
	links := make(map[string]bool, len(c.Access.Users))
	for _, u := range c.Access.Users {
		if links[u.UniqueLink] {
			return errs.Newf(errs.KindConfiguration, "access.yaml: duplicate unique_link %q", u.UniqueLink)
		}
		links[u.UniqueLink] = true
	}

	return nil
}

// applyDefaults は省略されたプロファイル値を補完する
func (c *Config) applyDefaults() {
	for i := range c.Access.Users {
		u := &c.Access.Users[i]
		if u.Quality == "" {
			u.Quality = defaultQuality
		}
		if u.RefreshInterval == 0 {
			u.RefreshInterval = defaultRefreshInterval
		}
	}
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Presets は画質プリセットを変換パイプライン用の形式で返す
func (c *Config) Presets() map[string]imaging.Preset {
	return map[string]imaging.Preset{
		"low": {
			MaxWidth:  c.Cameras.Qualities.Low.MaxWidth,
			MaxHeight: c.Cameras.Qualities.Low.MaxHeight,
			Quality:   c.Cameras.Qualities.Low.Quality,
		},
		"medium": {
			MaxWidth:  c.Cameras.Qualities.Medium.MaxWidth,
			MaxHeight: c.Cameras.Qualities.Medium.MaxHeight,
			Quality:   c.Cameras.Qualities.Medium.Quality,
		},
	}
}

// Profiles はアクセスプロファイル一覧を返す
func (c *Config) Profiles() []*access.Profile {
	profiles := make([]*access.Profile, 0, len(c.Access.Users))
	for _, u := range c.Access.Users {
		profiles = append(profiles, &access.Profile{
			Link:            u.UniqueLink,
			Name:            u.Name,
			AllowAll:        u.AllowedCameras.All,
			AllowedCameras:  u.AllowedCameras.IDs,
			AllowFromIPs:    u.AllowFromIPs,
			Quality:         u.Quality,
			RefreshInterval: u.RefreshInterval,
		})
	}
	return profiles
}
