// Package digest はHTTP Digest認証（RFC 2617）のチャレンジ応答を実装します。
//
// 対象デバイスとのプロトコル互換のためハッシュはレガシーMD5を使用します
// （セキュリティ上の選択ではない）。サーバーnonceとcnonceの組は
// リクエストをまたいで再利用せず、取得のたびに2往復のハンドシェイクを行います。
package digest

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"camproxy/internal/errs"
)

// ncFirstUse は初回使用を表すnonce-countの固定値
const ncFirstUse = "00000001"

// Challenge は401応答のWWW-Authenticateヘッダから解析したパラメータ
type Challenge struct {
	Realm  string
	Nonce  string
	QOP    string // カンマ区切りの選択肢。空ならレガシー形式
	Opaque string
}

// IsDigest はヘッダ値がDigestチャレンジかどうかを判定する
func IsDigest(header string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(header)), "digest")
}

// ParseChallenge はWWW-Authenticate: Digest ... ヘッダを解析する。
// realmとnonceが無いチャレンジはエラーとする。
func ParseChallenge(header string) (Challenge, error) {
	if !IsDigest(header) {
		return Challenge{}, errs.New(errs.KindUnavailable, "digest以外のチャレンジを受信")
	}

	params := parseParams(strings.TrimSpace(header)[len("digest"):])

	ch := Challenge{
		Realm:  params["realm"],
		Nonce:  params["nonce"],
		QOP:    params["qop"],
		Opaque: params["opaque"],
	}
	if ch.Realm == "" || ch.Nonce == "" {
		return Challenge{}, errs.New(errs.KindUnavailable, "digestチャレンジにrealmまたはnonceがない")
	}
	return ch, nil
}

// parseParams はカンマ区切りのkey=value（引用符付きまたは裸）を解析する
func parseParams(s string) map[string]string {
	params := make(map[string]string)
	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t,")
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(s[:eq]))
		s = s[eq+1:]

		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				// 閉じ引用符がない場合は残り全部を値とする
				value = s[1:]
				s = ""
			} else {
				value = s[1 : 1+end]
				s = s[end+2:]
			}
		} else {
			end := strings.IndexAny(s, " \t,")
			if end < 0 {
				value = s
				s = ""
			} else {
				value = s[:end]
				s = s[end:]
			}
		}
		if key != "" {
			params[key] = value
		}
	}
	return params
}

// Authorization はチャレンジに対するAuthorizationヘッダ値を構築する。
// qopがある場合はcnonceを毎回新しく乱数生成する。
func Authorization(ch Challenge, username, password, method, uri string) string {
	return authorization(ch, username, password, method, uri, newCnonce())
}

// authorization はcnonceを注入可能な内部実装（テスト用）
func authorization(ch Challenge, username, password, method, uri, cnonce string) string {
	ha1 := md5hex(username + ":" + ch.Realm + ":" + password)
	ha2 := md5hex(method + ":" + uri)

	if ch.QOP != "" {
		// 選択肢の先頭を採用する
		qop := strings.TrimSpace(strings.SplitN(ch.QOP, ",", 2)[0])
		response := md5hex(strings.Join([]string{ha1, ch.Nonce, ncFirstUse, cnonce, qop, ha2}, ":"))

		header := fmt.Sprintf(
			`Digest username=%q, realm=%q, nonce=%q, uri=%q, algorithm=MD5, qop=%s, nc=%s, cnonce=%q, response=%q`,
			username, ch.Realm, ch.Nonce, uri, qop, ncFirstUse, cnonce, response)
		if ch.Opaque != "" {
			header += fmt.Sprintf(`, opaque=%q`, ch.Opaque)
		}
		return header
	}

	// qopなしのレガシー形式
	response := md5hex(ha1 + ":" + ch.Nonce + ":" + ha2)
	return fmt.Sprintf(
		`Digest username=%q, realm=%q, nonce=%q, uri=%q, algorithm=MD5, response=%q`,
		username, ch.Realm, ch.Nonce, uri, response)
}

// newCnonce はリクエストごとのクライアントnonceを生成する
func newCnonce() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// md5hex は文字列のMD5ハッシュを16進文字列で返す
func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
