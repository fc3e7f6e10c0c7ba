// Package access はリンクトークンベースのアクセス制御を提供します。
//
// プロファイルは設定読み込み時に一度だけ構築され、実行時は不変です。
// IP許可リストが空のプロファイルは常に拒否します（deny-by-default）。
package access

import (
	"net/netip"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Wildcard は全カメラへのアクセスを表す許可リスト値
const Wildcard = "all"

// Profile はリンクトークンに紐づくアクセスプロファイル
type Profile struct {
	Link            string   // リンクトークン（主キー）
	Name            string   // 表示名（ログ用）
	AllowAll        bool     // 全カメラ許可
	AllowedCameras  []string // 許可カメラID一覧（AllowAllがfalseの場合）
	AllowFromIPs    []string // IPまたはCIDRの許可ルール一覧
	Quality         string   // デフォルト画質
	RefreshInterval int      // Web UIのデフォルト更新間隔（秒）
}

// Service はプロファイルの解決と認可を担う
type Service struct {
	profiles map[string]*Profile
	logger   zerolog.Logger
}

// NewService はプロファイル一覧からServiceを構築する
func NewService(profiles []*Profile, logger zerolog.Logger) *Service {
	m := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		m[p.Link] = p
	}

	logger.Info().Int("profiles", len(m)).Msg("access control initialized")

	return &Service{profiles: m, logger: logger}
}

// Resolve はリンクトークンからプロファイルを解決する。
// 未知のトークンの詳細（形式が近いかどうか等）は呼び出し側に漏らさない。
func (s *Service) Resolve(link string) (*Profile, bool) {
	p, ok := s.profiles[link]
	if !ok {
		s.logger.Warn().Msg("auth failed: unknown link token")
		return nil, false
	}
	return p, true
}

// CheckIPAccess はクライアントIPが許可ルールに一致するかを判定する。
// ルールが空の場合は常に拒否。IPv4-mapped-IPv6は比較前に正規化する。
// 不正なルールはスキップしてログに残す（他のルールは継続評価）。
func (s *Service) CheckIPAccess(p *Profile, clientIP string) bool {
	if len(p.AllowFromIPs) == 0 {
		s.logger.Warn().Str("profile", p.Name).Str("ip", clientIP).
			Msg("ip denied: empty allow list")
		return false
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err != nil {
		s.logger.Warn().Str("profile", p.Name).Str("ip", clientIP).
			Msg("ip denied: unparsable client address")
		return false
	}
	addr = addr.Unmap()

	for _, rule := range p.AllowFromIPs {
		rule = strings.TrimSpace(rule)

		if strings.Contains(rule, "/") {
			prefix, err := netip.ParsePrefix(rule)
			if err != nil {
				s.logger.Warn().Str("profile", p.Name).Str("rule", rule).
					Msg("skipping malformed CIDR rule")
				continue
			}
			if prefix.Masked().Contains(addr) {
				return true
			}
			continue
		}

		ruleAddr, err := netip.ParseAddr(rule)
		if err != nil {
			s.logger.Warn().Str("profile", p.Name).Str("rule", rule).
				Msg("skipping malformed IP rule")
			continue
		}
		if ruleAddr.Unmap() == addr {
			return true
		}
	}

	s.logger.Warn().Str("profile", p.Name).Str("ip", clientIP).
		Msg("ip denied: no matching rule")
	return false
}

// Authorize はプロファイルがカメラへアクセスできるかを判定する
func (s *Service) Authorize(p *Profile, cameraID string) bool {
	if p.AllowAll {
		return true
	}
	return lo.Contains(p.AllowedCameras, cameraID)
}
