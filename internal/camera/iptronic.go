package camera

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// iptronicAdapter はIPtronic系カメラからURL埋め込み資格情報でスナップショットを取得する
type iptronicAdapter struct {
	creds  *Credentials
	logger zerolog.Logger
}

// ValidateConfig はホストと資格情報の存在を検証する
func (a *iptronicAdapter) ValidateConfig(cam Descriptor) error {
	if err := requireHost(cam); err != nil {
		return err
	}
	return requireCredentials(cam, a.creds, VendorIptronic)
}

// FetchSnapshot はsnap.jpgエンドポイントを取得する
func (a *iptronicAdapter) FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error) {
	username, password := resolveCredentials(cam, a.creds)

	fetchURL := fmt.Sprintf("http://%s@%s/snap.jpg", url.UserPassword(username, password).String(), cam.Host)

	a.logger.Debug().Str("camera", cam.ID).Str("host", cam.Host).Msg("fetching iptronic snapshot")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	body, err := fetchBody(&http.Client{Timeout: fetchTimeout}, req)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	a.logger.Debug().Str("camera", cam.ID).Int("bytes", len(body)).Msg("iptronic snapshot fetched")
	return body, nil
}
