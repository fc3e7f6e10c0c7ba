package camera

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"camproxy/internal/digest"
)

// dahuaAdapter はDahua系カメラからHTTP Digest認証でスナップショットを取得する。
//
// 毎回の取得で2往復のハンドシェイクを行う:
//  1. 認証なしのプローブを送信
//  2. 401 + Digestチャレンジなら応答ヘッダを計算して再送信
//
// サーバーnonceはリクエストをまたいで再利用しない。
type dahuaAdapter struct {
	creds  *Credentials
	logger zerolog.Logger
}

// ValidateConfig はホストと資格情報の存在を検証する
func (a *dahuaAdapter) ValidateConfig(cam Descriptor) error {
	if err := requireHost(cam); err != nil {
		return err
	}
	return requireCredentials(cam, a.creds, VendorDahua)
}

// FetchSnapshot はDigestハンドシェイク付きでsnapshot.cgiを取得する
func (a *dahuaAdapter) FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error) {
	username, password := resolveCredentials(cam, a.creds)

	uri := "/cgi-bin/snapshot.cgi"
	if cam.Channel != 0 {
		uri = fmt.Sprintf("/cgi-bin/snapshot.cgi?channel=%d", cam.Channel)
	}
	url := "http://" + cam.Host + uri

	a.logger.Debug().Str("camera", cam.ID).Str("host", cam.Host).Msg("fetching dahua snapshot")

	// 1往復目: 認証なしのプローブ
	authHeader, err := a.probe(ctx, cam, url, username, password, uri)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	// 2往復目: 必要ならDigest応答ヘッダを付けて本取得
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable(cam, err)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	body, err := fetchBody(&http.Client{Timeout: fetchTimeout}, req)
	if err != nil {
		return nil, unavailable(cam, err)
	}

	a.logger.Debug().Str("camera", cam.ID).Int("bytes", len(body)).Msg("dahua snapshot fetched")
	return body, nil
}

// probe は認証なしリクエストを送り、必要ならAuthorizationヘッダ値を返す。
// 401以外の応答は「認証不要」として空文字を返す。
func (a *dahuaAdapter) probe(ctx context.Context, cam Descriptor, url, username, password, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := (&http.Client{Timeout: probeTimeout}).Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusUnauthorized {
		a.logger.Debug().Str("camera", cam.ID).Msg("dahua camera did not require authentication")
		return "", nil
	}

	challenge := resp.Header.Get("WWW-Authenticate")
	if !digest.IsDigest(challenge) {
		return "", fmt.Errorf("camera requires digest auth but sent a different challenge")
	}

	ch, err := digest.ParseChallenge(challenge)
	if err != nil {
		return "", err
	}

	return digest.Authorization(ch, username, password, http.MethodGet, uri), nil
}
