package camera

import (
	"context"

	"github.com/rs/zerolog"

	"camproxy/internal/errs"
)

// Registry はカメラ記述子とベンダーアダプタを保持し、取得をディスパッチする。
// ベンダーの追加はアダプタ1つと登録1行で完結する。
type Registry struct {
	cameras  map[string]Descriptor
	order    []string // 設定ファイルの記述順を保持
	adapters map[VendorType]Adapter
	logger   zerolog.Logger
}

// NewRegistry は記述子一覧とベンダー全体設定からRegistryを構築する
func NewRegistry(cameras []Descriptor, globals VendorGlobals, logger zerolog.Logger) *Registry {
	r := &Registry{
		cameras: make(map[string]Descriptor, len(cameras)),
		order:   make([]string, 0, len(cameras)),
		adapters: map[VendorType]Adapter{
			VendorUnifi:     newUnifiAdapter(globals.Unifi, logger),
			VendorReolink:   &reolinkAdapter{creds: globals.Reolink, logger: logger},
			VendorDahua:     &dahuaAdapter{creds: globals.Dahua, logger: logger},
			VendorHikvision: &hikvisionAdapter{creds: globals.Hikvision, logger: logger},
			VendorIptronic:  &iptronicAdapter{creds: globals.Iptronic, logger: logger},
			VendorRTSP:      &rtspAdapter{creds: globals.RTSP, logger: logger},
		},
		logger: logger,
	}

	for _, cam := range cameras {
		r.cameras[cam.ID] = cam
		r.order = append(r.order, cam.ID)
	}

	logger.Info().Int("cameras", len(r.cameras)).Msg("camera registry initialized")

	return r
}

// ValidateAll は全カメラの設定を起動時に検証する。
// サーバーがトラフィックを受け付ける前に必ず呼ぶこと。
func (r *Registry) ValidateAll() error {
	for _, id := range r.order {
		cam := r.cameras[id]
		adapter, ok := r.adapters[cam.Type]
		if !ok {
			return errs.Newf(errs.KindConfiguration, "camera %q has unknown vendor type %q", cam.ID, cam.Type)
		}
		if err := adapter.ValidateConfig(cam); err != nil {
			return err
		}
	}
	return nil
}

// Get はカメラ記述子を検索する
func (r *Registry) Get(id string) (Descriptor, bool) {
	cam, ok := r.cameras[id]
	return cam, ok
}

// List は設定順のカメラ記述子一覧を返す
func (r *Registry) List() []Descriptor {
	list := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.cameras[id])
	}
	return list
}

// FetchSnapshot はカメラIDに対応するアダプタで1枚の生画像を取得する
func (r *Registry) FetchSnapshot(ctx context.Context, id string) ([]byte, error) {
	cam, ok := r.cameras[id]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "camera not found: %s", id)
	}

	adapter, ok := r.adapters[cam.Type]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "no adapter for vendor type %q", cam.Type)
	}

	r.logger.Debug().Str("camera", id).Str("vendor", string(cam.Type)).Msg("fetching snapshot")

	return adapter.FetchSnapshot(ctx, cam)
}
