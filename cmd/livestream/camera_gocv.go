//go:build !nogocv

package main

import (
	"github.com/bft-labs/livestream/internal/adapters/gocv"
	"github.com/bft-labs/livestream/pkg/livestream"
	pkglog "github.com/bft-labs/livestream/pkg/log"
)

func newCamera(device int, log pkglog.Logger) (livestream.FrameSource, error) {
	return gocv.NewCamera(device, log), nil
}
