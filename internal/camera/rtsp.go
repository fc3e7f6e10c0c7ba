package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"camproxy/internal/errs"
)

// defaultRTSPTimeoutSec はrtsp取得の既定タイムアウト（秒）
const defaultRTSPTimeoutSec = 10

// rtspAdapter は連続ストリームからffmpegで1フレームを切り出して静止画に変換する。
// サブプロセスはリクエストより長生きしない: タイムアウトまたはエラーで必ずkillされる。
type rtspAdapter struct {
	creds  *Credentials
	logger zerolog.Logger
}

// ValidateConfig はストリームURLの存在を検証する
func (a *rtspAdapter) ValidateConfig(cam Descriptor) error {
	if cam.URL == "" {
		return errs.Newf(errs.KindConfiguration, "camera %q missing url for RTSP stream", cam.ID)
	}
	return nil
}

// buildURL は資格情報をストリームURLに注入する（既に含まれている場合はそのまま）
func (a *rtspAdapter) buildURL(cam Descriptor) string {
	streamURL := cam.URL

	username, password := resolveCredentials(cam, a.creds)
	if username == "" || password == "" || strings.Contains(streamURL, "@") {
		return streamURL
	}

	for _, scheme := range []string{"rtsp://", "rtsps://"} {
		if strings.HasPrefix(streamURL, scheme) {
			return scheme + url.UserPassword(username, password).String() + "@" + streamURL[len(scheme):]
		}
	}
	return streamURL
}

// FetchSnapshot はffmpegで1フレームをJPEGとして取得する
func (a *rtspAdapter) FetchSnapshot(ctx context.Context, cam Descriptor) ([]byte, error) {
	streamURL := a.buildURL(cam)

	timeout := time.Duration(cam.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultRTSPTimeoutSec * time.Second
	}

	transport := cam.Transport
	if transport == "" {
		transport = "tcp"
	}

	a.logger.Debug().Str("camera", cam.ID).Msg("fetching rtsp snapshot")

	// タイムアウト到達でプロセスは強制killされる（パイプも閉じられる）
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(fetchCtx, "ffmpeg",
		"-rtsp_transport", transport,
		"-i", streamURL,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if fetchCtx.Err() == context.DeadlineExceeded {
		return nil, unavailable(cam, fmt.Errorf("rtsp snapshot timeout after %s", timeout))
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, unavailable(cam, fmt.Errorf("ffmpeg not available: %w", err))
		}
		return nil, unavailable(cam, fmt.Errorf("ffmpeg failed: %s", firstErrorLine(stderr.String())))
	}
	if stdout.Len() == 0 {
		return nil, unavailable(cam, fmt.Errorf("ffmpeg produced no output: %s", firstErrorLine(stderr.String())))
	}

	a.logger.Debug().Str("camera", cam.ID).Int("bytes", stdout.Len()).Msg("rtsp snapshot fetched")
	return stdout.Bytes(), nil
}

// firstErrorLine はffmpegのstderrからエラーらしい行を抽出する
func firstErrorLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, "error") || strings.Contains(line, "Error") {
			return strings.TrimSpace(line)
		}
	}
	return "unknown error"
}
