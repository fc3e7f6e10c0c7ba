// Package storage はプレビュー画像のファイル永続化を担います。
//
// カメラIDと画質の組をキーとした単純なkey→bytesストアで、
// 最後に取得したスナップショットをライブ取得なしで返すために使われます。
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// SnapshotStore はプレビュー画像のファイルストア
type SnapshotStore struct {
	dir    string
	logger zerolog.Logger
}

// NewSnapshotStore はストアを初期化し、ディレクトリを作成する
func NewSnapshotStore(dir string, logger zerolog.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("スナップショット保存先の作成に失敗: %w", err)
	}

	logger.Info().Str("dir", dir).Msg("snapshot store initialized")

	return &SnapshotStore{dir: dir, logger: logger}, nil
}

// filePath はカメラIDと画質からファイルパスを導出する
func (s *SnapshotStore) filePath(cameraID, quality string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.jpg", cameraID, quality))
}

// Save はスナップショットを保存する
func (s *SnapshotStore) Save(cameraID, quality string, data []byte) error {
	if err := os.WriteFile(s.filePath(cameraID, quality), data, 0o644); err != nil {
		return fmt.Errorf("スナップショットの保存に失敗 %s:%s: %w", cameraID, quality, err)
	}
	return nil
}

// Load は保存済みスナップショットを読み込む。未保存の場合は (nil, false)
func (s *SnapshotStore) Load(cameraID, quality string) ([]byte, bool) {
	data, err := os.ReadFile(s.filePath(cameraID, quality))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error().Err(err).Str("camera", cameraID).Str("quality", quality).
				Msg("failed to load snapshot from store")
		}
		return nil, false
	}
	return data, true
}
