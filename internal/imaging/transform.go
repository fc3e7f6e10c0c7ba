// Package imaging はスナップショットの決定的な変換パイプラインを実装します。
//
// 適用順序は固定で、回転 → 切り抜き → 縮小 → 再圧縮。
// 切り抜き範囲は回転後のフレーム寸法に対して検証されるため、
// 回転は必ず切り抜きより先に行います。
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"camproxy/internal/errs"
)

// highReencodeQuality はhigh画質でcrop/rotateにより再エンコードが必要な場合のJPEG品質
const highReencodeQuality = 90

// QualityHigh は変換なしの最高画質プリセット名
const QualityHigh = "high"

// Preset はlow/medium画質の縮小・圧縮プリセット
type Preset struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG品質係数
}

// CropRect は切り抜き範囲。回転後のフレーム座標系で解釈される
type CropRect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Request は1回の変換リクエスト
type Request struct {
	Quality string    // low / medium / high
	Crop    *CropRect // nilなら切り抜きなし
	Rotate  *float64  // nilなら回転なし。度数、[-45, 45]
}

// HasTransform はcropまたはrotateが要求されているかを返す
func (r Request) HasTransform() bool {
	return r.Crop != nil || r.Rotate != nil
}

// Transformer は画質プリセットを保持する変換器
type Transformer struct {
	presets map[string]Preset
}

// NewTransformer は新しいTransformerを作成する
func NewTransformer(presets map[string]Preset) *Transformer {
	return &Transformer{presets: presets}
}

// Process はJPEGバイト列に変換パイプラインを適用する。
// high画質でcrop/rotateが無い場合は入力バイト列をそのまま返す（コピーなし）。
func (t *Transformer) Process(data []byte, req Request) ([]byte, error) {
	if req.Quality == QualityHigh && !req.HasTransform() {
		return data, nil
	}

	var preset *Preset
	if req.Quality != QualityHigh {
		p, ok := t.presets[req.Quality]
		if !ok {
			return nil, errs.Newf(errs.KindInvalidParameter, "unknown quality preset: %s", req.Quality)
		}
		preset = &p
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to decode snapshot", err)
	}

	// 1. 回転（切り抜き範囲は回転後の寸法で検証するため先に行う）
	if req.Rotate != nil && *req.Rotate != 0 {
		img = rotate(img, *req.Rotate)
	}

	// 2. 切り抜き（回転後の実寸法に対して検証。はみ出しは丸めずエラー）
	if req.Crop != nil {
		img, err = crop(img, *req.Crop)
		if err != nil {
			return nil, err
		}
	}

	// 3. 縮小（low/mediumのみ。アスペクト比を維持し、拡大はしない）
	quality := highReencodeQuality
	if preset != nil {
		img = fitInside(img, preset.MaxWidth, preset.MaxHeight)
		quality = preset.Quality
	}

	// 4. 再圧縮
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to encode snapshot", err)
	}
	return buf.Bytes(), nil
}

// rotate は画像を指定角度（度数）だけ回転する。
// 露出した角は黒で塗りつぶし、出力寸法は回転後の外接矩形に合わせる。
func rotate(src image.Image, degrees float64) image.Image {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)

	sb := src.Bounds()
	w := float64(sb.Dx())
	h := float64(sb.Dy())

	// 回転後の外接矩形
	dw := int(math.Round(math.Abs(w*cos) + math.Abs(h*sin)))
	dh := int(math.Round(math.Abs(w*sin) + math.Abs(h*cos)))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	// コピー元中心をコピー先中心へ移す回転アフィン変換（dst座標 = m × src座標）
	cxSrc := float64(sb.Min.X) + w/2
	cySrc := float64(sb.Min.Y) + h/2
	cxDst := float64(dw) / 2
	cyDst := float64(dh) / 2

	m := f64.Aff3{
		cos, -sin, cxDst - cos*cxSrc + sin*cySrc,
		sin, cos, cyDst - sin*cxSrc - cos*cySrc,
	}

	xdraw.CatmullRom.Transform(dst, m, src, sb, xdraw.Over, nil)
	return dst
}

// crop は画像から矩形を切り出す。範囲外は丸めずにエラーとする
func crop(src image.Image, r CropRect) (image.Image, error) {
	sb := src.Bounds()
	frameW := sb.Dx()
	frameH := sb.Dy()

	if r.Left+r.Width > frameW || r.Top+r.Height > frameH {
		return nil, errs.Newf(errs.KindInvalidParameter,
			"crop rectangle %d,%d,%d,%d out of bounds for %dx%d frame",
			r.Left, r.Top, r.Width, r.Height, frameW, frameH)
	}

	rect := image.Rect(sb.Min.X+r.Left, sb.Min.Y+r.Top, sb.Min.X+r.Left+r.Width, sb.Min.Y+r.Top+r.Height)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := src.(subImager); ok {
		return si.SubImage(rect), nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	return dst, nil
}

// fitInside はアスペクト比を維持してmaxW×maxHに収まるよう縮小する。
// 元画像が収まっている場合は拡大しない。
func fitInside(src image.Image, maxW, maxH int) image.Image {
	sb := src.Bounds()
	w := sb.Dx()
	h := sb.Dy()

	if w <= maxW && h <= maxH {
		return src
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst
}

// Dimensions はJPEGバイト列の寸法を返す（デコードせずヘッダのみ読む）
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, errs.Wrap(errs.KindInternal, "failed to probe image dimensions", err)
	}
	return cfg.Width, cfg.Height, nil
}
