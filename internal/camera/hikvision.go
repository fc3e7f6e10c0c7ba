package camera

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// hikvisionAdapter はHikvisionのISAPIからBasic認証でスナップショットを取得する
type hikvisionAdapter struct {
	creds  *Credentials
	logger zerolog.Logger
}

// ValidateConfig はホストと資格情報の存在を検証する
func (a *hikvisionAdapter) ValidateConfig(cam Descriptor) error {
	if err := requireHost(cam); err != nil {
		return err
	}
	return requireCredentials(cam, a.creds, VendorHikvision)
}

// FetchSnapshot はISAPIのpictureエンドポイントを取得する
func (a *hikvisionAdapter) FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error) {
	username, password := resolveCredentials(cam, a.creds)

	channel := cam.Channel
	if channel == 0 {
		channel = 101
	}
	url := fmt.Sprintf("http://%s/ISAPI/Streaming/channels/%d/picture", cam.Host, channel)

	a.logger.Debug().Str("camera", cam.ID).Str("host", cam.Host).Msg("fetching hikvision snapshot")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable(cam, err)
	}
	req.SetBasicAuth(username, password)

	body, err := fetchBody(&http.Client{Timeout: fetchTimeout}, req)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	a.logger.Debug().Str("camera", cam.ID).Int("bytes", len(body)).Msg("hikvision snapshot fetched")
	return body, nil
}
