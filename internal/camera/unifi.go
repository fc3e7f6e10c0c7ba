package camera

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"camproxy/internal/errs"
)

// unifiAdapter はUniFi Protectの連携APIからスナップショットを取得する。
// 対象は自己署名証明書のローカル機器のため、証明書検証は意図的に無効化している。
type unifiAdapter struct {
	settings *UnifiSettings
	logger   zerolog.Logger
	client   *http.Client
}

// newUnifiAdapter はクライアントを構築時に一度だけ作る。
// アダプタは全リクエストgoroutineで共有されるため、遅延初期化はしない。
func newUnifiAdapter(settings *UnifiSettings, logger zerolog.Logger) *unifiAdapter {
	return &unifiAdapter{
		settings: settings,
		logger:   logger,
		client: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// ValidateConfig はcameraIdと連携API設定の存在を検証する
func (a *unifiAdapter) ValidateConfig(cam Descriptor) error {
	if cam.CameraID == "" {
		return errs.Newf(errs.KindConfiguration, "unifi camera %q missing cameraId", cam.ID)
	}
	if a.settings == nil || a.settings.BaseURL == "" || a.settings.APIKey == "" {
		return errs.Newf(errs.KindConfiguration, "camera %q: unifi requires baseUrl and apiKey in config", cam.ID)
	}
	return nil
}

// FetchSnapshot はAPIキー認証でスナップショットを取得する
func (a *unifiAdapter) FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error) {
	url := fmt.Sprintf("%s/proxy/protect/integration/v1/cameras/%s/snapshot", a.settings.BaseURL, cam.CameraID)

	a.logger.Debug().Str("camera", cam.ID).Str("url", url).Msg("fetching unifi snapshot")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable(cam, err)
	}
	req.Header.Set("X-API-KEY", a.settings.APIKey)

	body, err := fetchBody(a.client, req)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	a.logger.Debug().Str("camera", cam.ID).Int("bytes", len(body)).Msg("unifi snapshot fetched")
	return body, nil
}
