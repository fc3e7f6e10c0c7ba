package camera

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// reolinkAdapter はReolinkのCGI APIからスナップショットを取得する。
// このAPIは資格情報をクエリパラメータで受け取る。
type reolinkAdapter struct {
	creds  *Credentials
	logger zerolog.Logger
}

// ValidateConfig はホストと資格情報の存在を検証する
func (a *reolinkAdapter) ValidateConfig(cam Descriptor) error {
	if err := requireHost(cam); err != nil {
		return err
	}
	return requireCredentials(cam, a.creds, VendorReolink)
}

// FetchSnapshot はSnapコマンドでスナップショットを取得する
func (a *reolinkAdapter) FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error) {
	username, password := resolveCredentials(cam, a.creds)

	query := url.Values{}
	query.Set("cmd", "Snap")
	query.Set("channel", fmt.Sprintf("%d", cam.Channel))
	query.Set("user", username)
	query.Set("password", password)
	fetchURL := fmt.Sprintf("http://%s/cgi-bin/api.cgi?%s", cam.Host, query.Encode())

	a.logger.Debug().Str("camera", cam.ID).Str("host", cam.Host).Msg("fetching reolink snapshot")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	body, err := fetchBody(&http.Client{Timeout: fetchTimeout}, req)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	a.logger.Debug().Str("camera", cam.ID).Int("bytes", len(body)).Msg("reolink snapshot fetched")
	return body, nil
}
