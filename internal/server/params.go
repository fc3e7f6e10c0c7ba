package server

import (
	"math"
	"strconv"
	"strings"

	"camproxy/internal/errs"
	"camproxy/internal/imaging"
)

// 回転角の許容範囲（度）。傾き補正用途のため大きな回転は受け付けない
const (
	minRotateDegrees = -45
	maxRotateDegrees = 45
)

// parseCropParam はcrop=left,top,width,heightを解析する。
// 空文字はcropなし（nil）を返す。
func parseCropParam(raw string) (*imaging.CropRect, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, errs.New(errs.KindInvalidParameter, "invalid crop parameter, use crop=left,top,width,height")
	}

	values := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errs.New(errs.KindInvalidParameter, "invalid crop parameter, use crop=left,top,width,height")
		}
		values[i] = v
	}

	crop := imaging.CropRect{Left: values[0], Top: values[1], Width: values[2], Height: values[3]}
	if crop.Left < 0 || crop.Top < 0 || crop.Width <= 0 || crop.Height <= 0 {
		return nil, errs.New(errs.KindInvalidParameter, "invalid crop parameter, use crop=left,top,width,height")
	}

	return &crop, nil
}

// parseRotateParam はrotate=度数を解析する。
// 空文字は回転なし（nil）を返す。
func parseRotateParam(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}

	angle, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(angle) || math.IsInf(angle, 0) {
		return nil, errs.New(errs.KindInvalidParameter, "invalid rotate parameter, use rotate=degrees (e.g. rotate=2.5)")
	}

	if angle < minRotateDegrees || angle > maxRotateDegrees {
		return nil, errs.Newf(errs.KindInvalidParameter,
			"invalid rotate parameter, must be between %d and %d degrees", minRotateDegrees, maxRotateDegrees)
	}

	return &angle, nil
}
